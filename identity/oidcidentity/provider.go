// Package oidcidentity implements identity.Provider on top of an OIDC
// issuer using the standard oauth2 and go-oidc libraries. The consumer
// drives the authorization-code flow (AuthCodeURL + Exchange); from
// then on the provider hands out access tokens, refreshing through the
// stored refresh token when a forced refresh is requested.
package oidcidentity

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-session-sync/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ identity.Provider = (*Provider)(nil)

// Provider is an OIDC-backed identity provider.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier

	lock    sync.Mutex
	token   *oauth2.Token
	source  oauth2.TokenSource
	state   identity.State
	subs    map[int]func(identity.State)
	nextSub int
}

// Config carries the OIDC client settings.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// New discovers the issuer and prepares the oauth2 configuration. The
// provider starts unauthenticated; Exchange signs it in.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("[oidcidentity.New] issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidcidentity.New] client ID is required")
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcidentity.New] oidc.NewProvider")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       append([]string{oidc.ScopeOpenID, "profile", "email"}, cfg.Scopes...),
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		state:    identity.State{},
		subs:     make(map[int]func(identity.State)),
	}, nil
}

// AuthCodeURL returns the issuer's authorization URL for the given
// state parameter.
func (p *Provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

// Exchange completes the authorization-code flow: it trades the code
// for tokens, verifies the ID token, and publishes the authenticated
// principal to subscribers.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) error {
	oauth2Token, err := p.oauthConfig.Exchange(ctx, code, opts...)
	if err != nil {
		p.publish(identity.State{Err: err})
		return errors.Wrap(err, "[Provider.Exchange] token exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		err := errors.New("[Provider.Exchange] no ID token in response")
		p.publish(identity.State{Err: err})
		return err
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		p.publish(identity.State{Err: err})
		return errors.Wrap(err, "[Provider.Exchange] verify ID token")
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		log.Err(err).Msg("could not decode ID token claims")
	}

	p.lock.Lock()
	p.token = oauth2Token
	p.source = p.oauthConfig.TokenSource(context.Background(), oauth2Token)
	p.lock.Unlock()

	p.publish(identity.State{Principal: &identity.Principal{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}})
	return nil
}

// Credential returns the current access token. A forced refresh drops
// the cached token and redeems the refresh token for a new one.
func (p *Provider) Credential(ctx context.Context, forceRefresh bool) (string, error) {
	p.lock.Lock()
	token := p.token
	source := p.source
	p.lock.Unlock()

	if token == nil || source == nil {
		return "", errors.New("[Provider.Credential] not signed in")
	}

	if forceRefresh {
		if token.RefreshToken == "" {
			return "", errors.New("[Provider.Credential] no refresh token held")
		}
		source = p.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken})
	}

	fresh, err := source.Token()
	if err != nil {
		return "", errors.Wrap(err, "[Provider.Credential] token source")
	}

	p.lock.Lock()
	p.token = fresh
	p.source = p.oauthConfig.TokenSource(context.Background(), fresh)
	p.lock.Unlock()

	return fresh.AccessToken, nil
}

// SignOut discards the tokens and publishes the unauthenticated state.
// OIDC end-session calls are left to the consumer (they need a browser
// redirect).
func (p *Provider) SignOut(_ context.Context) error {
	p.lock.Lock()
	p.token = nil
	p.source = nil
	p.lock.Unlock()

	p.publish(identity.State{})
	return nil
}

// Subscribe registers fn and immediately delivers the current state.
func (p *Provider) Subscribe(fn func(identity.State)) (unsubscribe func()) {
	p.lock.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	state := p.state
	p.lock.Unlock()

	fn(state)
	return func() {
		p.lock.Lock()
		defer p.lock.Unlock()
		delete(p.subs, id)
	}
}

func (p *Provider) publish(state identity.State) {
	p.lock.Lock()
	p.state = state
	fns := make([]func(identity.State), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.lock.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
