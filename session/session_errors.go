package session

import "errors"

var (
	// ErrNoSession is returned by RunGuarded when there is no
	// authenticated principal or held credential. The operation is
	// never invoked; callers treat this as a silent skip, not a
	// user-facing error.
	ErrNoSession = errors.New("no authenticated session")

	// ErrSessionRevoked is the terminal failure returned when the
	// remote API rejects the credential even after a forced refresh.
	// The manager has already signed the session out; callers must not
	// retry or surface a duplicate error.
	ErrSessionRevoked = errors.New("session revoked after failed refresh")
)

// IsTerminalAuth reports whether err is the already-handled terminal
// authorization failure from RunGuarded.
func IsTerminalAuth(err error) bool {
	return errors.Is(err, ErrSessionRevoked)
}
