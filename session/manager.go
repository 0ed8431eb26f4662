// Package session owns the credential lifecycle and the guarded-call
// retry primitive: every remote operation runs with the current bearer
// credential and is retried exactly once, after a forced refresh, when
// the remote API rejects that credential.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-sync/apierrors"
	"github.com/jrsteele09/go-session-sync/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Phase is the authentication phase of the session.
type Phase uint8

const (
	PhaseInitializing Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Operation is a unit of work that needs the current bearer credential.
// It reports a rejected credential by returning an error satisfying
// apierrors.IsAuthorizationRejected.
type Operation func(ctx context.Context, credential string) error

// NavigateFunc is invoked by RequireAuthentication to move an
// unauthenticated user away from a protected area.
type NavigateFunc func()

// Manager holds the session state (principal, credential, phase) and
// exposes RunGuarded. The credential is replaced wholesale on every
// refresh, never merged.
type Manager struct {
	provider identity.Provider
	navigate NavigateFunc
	nowTime  func() time.Time // nowTime function (injectable for testing)

	lock        sync.RWMutex
	sessionID   string
	principal   *identity.Principal
	credential  string
	phase       Phase
	subscribers map[int]func(Phase)
	nextSub     int

	refreshGroup singleflight.Group
	unsubscribe  func()
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNavigate sets the callback used by RequireAuthentication.
func WithNavigate(fn NavigateFunc) ManagerOption {
	return func(m *Manager) {
		m.navigate = fn
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a session manager bound to the given identity
// provider and subscribes to its observable state. Call Close to detach.
func NewManager(provider identity.Provider, options ...ManagerOption) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("[NewManager] identity provider is required")
	}

	manager := &Manager{
		provider:    provider,
		nowTime:     time.Now,
		phase:       PhaseInitializing,
		subscribers: make(map[int]func(Phase)),
	}

	for _, opt := range options {
		opt(manager)
	}

	manager.unsubscribe = provider.Subscribe(manager.handleProviderState)
	return manager, nil
}

// Close detaches the manager from the identity provider's state stream.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// CurrentCredential returns the held credential, if any. The credential
// is present if and only if the phase is PhaseAuthenticated.
func (m *Manager) CurrentCredential() (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.credential, m.credential != ""
}

// Phase returns the current authentication phase.
func (m *Manager) Phase() Phase {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.phase
}

// RequireAuthentication triggers navigation away from a protected area
// when the session is unauthenticated. No-op in any other phase.
func (m *Manager) RequireAuthentication() {
	if m.Phase() == PhaseUnauthenticated && m.navigate != nil {
		m.navigate()
	}
}

// SubscribePhase registers fn for phase transitions. The returned
// function removes the subscription.
func (m *Manager) SubscribePhase(fn func(Phase)) (unsubscribe func()) {
	m.lock.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.lock.Unlock()

	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		delete(m.subscribers, id)
	}
}

// RunGuarded runs op with the current credential, retrying exactly once
// after a forced refresh when op reports a rejected credential.
//
// Protocol:
//   - no principal or credential held: returns ErrNoSession, op never runs
//   - first attempt rejected: one forced refresh, then one retry
//   - retry rejected too: forced sign-out, returns ErrSessionRevoked
//   - any other failure propagates after a single attempt
//
// Refreshes are single-flighted per session, so concurrent guarded
// calls share one in-flight refresh instead of issuing duplicates.
func (m *Manager) RunGuarded(ctx context.Context, op Operation) error {
	credential, sessionID, ok := m.credentialSnapshot()
	if !ok {
		return ErrNoSession
	}
	m.warnIfExpired(credential)

	err := op(ctx, credential)
	if err == nil || !apierrors.IsAuthorizationRejected(err) {
		return err
	}

	fresh, refreshErr := m.refreshCredential(ctx, sessionID)
	if refreshErr != nil {
		log.Err(refreshErr).Msg("credential refresh failed, signing out")
		m.forceSignOut(ctx)
		return errors.Wrap(ErrSessionRevoked, "[RunGuarded] refresh failed")
	}

	err = op(ctx, fresh)
	if err != nil && apierrors.IsAuthorizationRejected(err) {
		m.forceSignOut(ctx)
		return errors.Wrap(ErrSessionRevoked, "[RunGuarded] credential rejected after refresh")
	}
	return err
}

// SignOut clears the session and signs out of the identity provider.
func (m *Manager) SignOut(ctx context.Context) {
	m.forceSignOut(ctx)
}

func (m *Manager) credentialSnapshot() (credential, sessionID string, ok bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.principal == nil || m.credential == "" {
		return "", "", false
	}
	return m.credential, m.sessionID, true
}

// refreshCredential requests exactly one fresh credential through the
// single-flight group keyed by session instance, then replaces the held
// credential.
func (m *Manager) refreshCredential(ctx context.Context, sessionID string) (string, error) {
	fresh, err, shared := m.refreshGroup.Do(sessionID, func() (any, error) {
		credential, err := m.provider.Credential(ctx, true)
		if err != nil {
			return nil, errors.Wrap(err, "[refreshCredential] provider.Credential")
		}
		m.storeCredential(credential)
		return credential, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug().Str("session_id", sessionID).Msg("reused in-flight credential refresh")
	}
	return fresh.(string), nil
}

func (m *Manager) storeCredential(credential string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.credential = credential
}

// handleProviderState reacts to the identity provider's observable
// principal/loading/error triple.
func (m *Manager) handleProviderState(state identity.State) {
	if state.Loading {
		m.setState(nil, "", PhaseInitializing)
		return
	}
	if state.Err != nil {
		log.Err(state.Err).Msg("identity provider error, signing out")
		m.forceSignOut(context.Background())
		return
	}
	if state.Principal == nil {
		m.setState(nil, "", PhaseUnauthenticated)
		return
	}

	credential, err := m.provider.Credential(context.Background(), false)
	if err != nil {
		log.Err(err).Msg("could not obtain credential for principal, signing out")
		m.forceSignOut(context.Background())
		return
	}
	m.lock.Lock()
	m.sessionID = uuid.New().String()
	m.lock.Unlock()
	m.setState(state.Principal, credential, PhaseAuthenticated)
}

func (m *Manager) forceSignOut(ctx context.Context) {
	m.setState(nil, "", PhaseUnauthenticated)
	if err := m.provider.SignOut(ctx); err != nil {
		log.Err(err).Msg("identity provider sign-out failed")
	}
}

// setState replaces the session state and notifies phase subscribers on
// transitions. Subscribers are invoked outside the lock.
func (m *Manager) setState(principal *identity.Principal, credential string, phase Phase) {
	m.lock.Lock()
	changed := m.phase != phase
	m.principal = principal
	m.credential = credential
	m.phase = phase
	var fns []func(Phase)
	if changed {
		fns = make([]func(Phase), 0, len(m.subscribers))
		for _, fn := range m.subscribers {
			fns = append(fns, fn)
		}
	}
	m.lock.Unlock()

	for _, fn := range fns {
		fn(phase)
	}
}

// warnIfExpired parses the credential as a JWT without verifying it and
// logs when the exp claim is already in the past. The remote API stays
// the authority on rejection; this is a debugging aid only.
func (m *Manager) warnIfExpired(credential string) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(credential, jwt.MapClaims{})
	if err != nil {
		return // opaque credential, nothing to inspect
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(m.nowTime()) {
		log.Debug().Time("expired_at", exp.Time).Msg("credential expired locally, expecting rejection")
	}
}
