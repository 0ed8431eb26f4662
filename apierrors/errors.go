// Package apierrors defines the failure variants the remote API boundary
// is allowed to return. Classification happens once, at the boundary —
// downstream code switches on these types and never inspects response
// bodies or message shapes itself.
package apierrors

import (
	"errors"
	"fmt"
)

// ErrAuthorizationRejected means the remote API refused the supplied
// bearer credential as expired or invalid. It is the only failure the
// session manager will retry.
var ErrAuthorizationRejected = errors.New("authorization rejected")

// ValidationError carries the full list of human-readable validation
// messages returned by the remote API for a rejected mutation.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s)", len(e.Messages))
}

// StatusError is any non-validation, non-authorization failure,
// identified solely by its HTTP status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Code)
}

// IsAuthorizationRejected reports whether err is (or wraps) a rejected
// credential.
func IsAuthorizationRejected(err error) bool {
	return errors.Is(err, ErrAuthorizationRejected)
}

// AsValidation extracts a ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// AsStatus extracts a StatusError from err's chain.
func AsStatus(err error) (*StatusError, bool) {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr, true
	}
	return nil, false
}
