package main

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-session-sync/identity"
)

var _ identity.Provider = (*demoProvider)(nil)

// demoProvider hands out whatever token the demo authority currently
// considers valid; a forced refresh mints the next one.
type demoProvider struct {
	authority *tokenAuthority

	mu      sync.Mutex
	state   identity.State
	subs    map[int]func(identity.State)
	nextSub int
}

func newDemoProvider(authority *tokenAuthority) *demoProvider {
	return &demoProvider{
		authority: authority,
		subs:      make(map[int]func(identity.State)),
	}
}

func (dp *demoProvider) Credential(_ context.Context, forceRefresh bool) (string, error) {
	if forceRefresh {
		return dp.authority.mint(), nil
	}
	return dp.authority.currentToken(), nil
}

func (dp *demoProvider) SignOut(_ context.Context) error {
	dp.publish(identity.State{})
	return nil
}

func (dp *demoProvider) Subscribe(fn func(identity.State)) func() {
	dp.mu.Lock()
	id := dp.nextSub
	dp.nextSub++
	dp.subs[id] = fn
	state := dp.state
	dp.mu.Unlock()

	fn(state)
	return func() {
		dp.mu.Lock()
		defer dp.mu.Unlock()
		delete(dp.subs, id)
	}
}

func (dp *demoProvider) signIn(subject string) {
	dp.publish(identity.State{Principal: &identity.Principal{Subject: subject}})
}

func (dp *demoProvider) publish(state identity.State) {
	dp.mu.Lock()
	dp.state = state
	fns := make([]func(identity.State), 0, len(dp.subs))
	for _, fn := range dp.subs {
		fns = append(fns, fn)
	}
	dp.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
