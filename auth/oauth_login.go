package auth

import (
	"context"

	"github.com/leetbase/auth-service/accounts"
	"github.com/leetbase/auth-service/internal/httperr"
	"github.com/leetbase/auth-service/oauth"
	"github.com/leetbase/auth-service/profiles"
	"github.com/pkg/errors"
)

// OAuthLogin completes the provider callback: it exchanges the authorization
// code for the provider identity and signs the matching local account in. If
// no account holds the provider's verified primary email one is created on
// the spot, pre-verified and with a random password nobody knows, so the
// identity can only ever sign in through the provider or a password reset.
func (s *Service) OAuthLogin(ctx context.Context, code string) (*Session, error) {
	if code == "" {
		return nil, httperr.Validation("Missing code in query")
	}

	identity, err := s.deps.Provider.FetchIdentity(ctx, code)
	if err != nil {
		if errors.Is(err, oauth.ErrNoVerifiedEmail) {
			return nil, httperr.Validation("Primary email not found")
		}
		return nil, httperr.Upstream("Internal server error", err)
	}

	account, err := s.deps.Accounts.FindByIdentifier(ctx, identity.Email)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		account, err = s.createFromIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, httperr.Upstream("Internal server error", err)
	}

	return s.startSession(ctx, account)
}

func (s *Service) createFromIdentity(ctx context.Context, identity *oauth.Identity) (*accounts.Account, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}
	hash, err := accounts.HashPassword(password)
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	account, err := s.deps.Accounts.Create(ctx, accounts.CreateParams{
		Username:        identity.Login + "_" + randomSuffix(),
		Email:           identity.Email,
		PasswordHash:    hash,
		IsEmailVerified: true,
		IsAuthenticated: true,
	})
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	name := identity.Name
	if name == "" {
		name = identity.Login
	}
	if _, err := s.deps.Profiles.Create(ctx, profiles.Profile{ID: account.ID, Name: name, Avatar: identity.AvatarURL}); err != nil {
		if delErr := s.deps.Accounts.DeleteByID(ctx, account.ID); delErr != nil {
			return nil, httperr.Upstream("Internal server error", errors.Wrap(err, "rollback failed: "+delErr.Error()))
		}
		return nil, httperr.Upstream("Internal server error", err)
	}

	return account, nil
}
