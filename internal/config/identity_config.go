package config

import "strings"

type IdentityConfig interface {
	GetIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetScopes() []string
}

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (Identity) GetClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Identity) GetClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (Identity) GetRedirectURL() string {
	return GetEnv("OIDC_REDIRECT_URL", "http://localhost:3000/callback")
}

func (Identity) GetScopes() []string {
	scopes := GetEnv("OIDC_SCOPES", "")
	if scopes == "" {
		return nil
	}
	return strings.Fields(scopes)
}
