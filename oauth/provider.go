// Package oauth is the third-party identity boundary. The only provider the
// platform federates with is GitHub, which speaks plain OAuth2 (no OIDC
// discovery, no ID tokens), so the contract is code-in, identity-out.
package oauth

import (
	"context"
	"errors"
)

// ErrNoVerifiedEmail is returned when the provider account has no primary
// verified email; such identities cannot be linked to a local account.
var ErrNoVerifiedEmail = errors.New("no verified primary email on provider account")

// Identity is the provider profile after the callback exchange. Email is
// always the verified primary address.
type Identity struct {
	Login     string
	Name      string
	AvatarURL string
	Email     string
}

// Provider exchanges an authorization code for the provider identity.
type Provider interface {
	// AuthCodeURL is where the browser is sent to start the flow.
	AuthCodeURL() string
	// FetchIdentity exchanges code for a provider token and loads the
	// profile plus the verified primary email.
	FetchIdentity(ctx context.Context, code string) (*Identity, error)
}
