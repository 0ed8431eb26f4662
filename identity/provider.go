// Package identity defines the boundary to the external identity
// provider: the component that authenticates the user and issues the
// opaque bearer credential presented to the remote API.
package identity

import "context"

// Principal is the identity of the signed-in user.
type Principal struct {
	Subject string
	Email   string
	Name    string
}

// State is the provider's observable principal/loading/error triple.
// Loading is true while the provider is still resolving the initial
// session; Err is set when the provider itself failed.
type State struct {
	Principal *Principal
	Loading   bool
	Err       error
}

// Provider issues time-limited bearer credentials for the authenticated
// principal. Credential with forceRefresh=true must bypass any cached
// token and mint a fresh one.
type Provider interface {
	Credential(ctx context.Context, forceRefresh bool) (string, error)
	SignOut(ctx context.Context) error

	// Subscribe registers fn for state changes. The current state is
	// delivered immediately on registration. The returned function
	// removes the subscription.
	Subscribe(fn func(State)) (unsubscribe func())
}
