package providerfake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-sync/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

// FakeProvider is a scripted identity provider for tests. Credentials
// are handed out from a queue; every forced refresh pops the next one.
type FakeProvider struct {
	lock sync.Mutex

	credentials  []string
	credIndex    int
	credErr      error
	refreshDelay time.Duration

	refreshCalls int
	signOutCalls int

	state   identity.State
	subs    map[int]func(identity.State)
	nextSub int
}

func NewFakeProvider(credentials ...string) *FakeProvider {
	return &FakeProvider{
		credentials: credentials,
		state:       identity.State{Loading: true},
		subs:        make(map[int]func(identity.State)),
	}
}

func (fp *FakeProvider) Credential(_ context.Context, forceRefresh bool) (string, error) {
	if forceRefresh {
		fp.lock.Lock()
		delay := fp.refreshDelay
		fp.lock.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	fp.lock.Lock()
	defer fp.lock.Unlock()

	if forceRefresh {
		fp.refreshCalls++
		fp.credIndex++
	}
	if fp.credErr != nil {
		return "", fp.credErr
	}
	if fp.credIndex >= len(fp.credentials) {
		return "", fmt.Errorf("fake provider exhausted after %d credentials", len(fp.credentials))
	}
	return fp.credentials[fp.credIndex], nil
}

func (fp *FakeProvider) SignOut(_ context.Context) error {
	fp.lock.Lock()
	fp.signOutCalls++
	fp.lock.Unlock()

	fp.PublishState(identity.State{})
	return nil
}

func (fp *FakeProvider) Subscribe(fn func(identity.State)) func() {
	fp.lock.Lock()
	id := fp.nextSub
	fp.nextSub++
	fp.subs[id] = fn
	state := fp.state
	fp.lock.Unlock()

	fn(state)
	return func() {
		fp.lock.Lock()
		defer fp.lock.Unlock()
		delete(fp.subs, id)
	}
}

// PublishState pushes a new observable state to all subscribers.
func (fp *FakeProvider) PublishState(state identity.State) {
	fp.lock.Lock()
	fp.state = state
	fns := make([]func(identity.State), 0, len(fp.subs))
	for _, fn := range fp.subs {
		fns = append(fns, fn)
	}
	fp.lock.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// SignIn publishes an authenticated principal.
func (fp *FakeProvider) SignIn(principal identity.Principal) {
	fp.PublishState(identity.State{Principal: &principal})
}

// SetRefreshDelay makes every forced refresh take at least d, so tests
// can overlap concurrent refresh requests.
func (fp *FakeProvider) SetRefreshDelay(d time.Duration) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.refreshDelay = d
}

// FailCredentials makes every subsequent Credential call return err.
func (fp *FakeProvider) FailCredentials(err error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.credErr = err
}

func (fp *FakeProvider) RefreshCalls() int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.refreshCalls
}

func (fp *FakeProvider) SignOutCalls() int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.signOutCalls
}
