// Package auth is the identity gateway: registration, login, logout, token
// refresh, email verification, password reset, and OAuth sign-in. It
// orchestrates the credential store, pin store, token service, notifier, and
// OAuth provider behind typed errors that handlers translate to HTTP.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/leetbase/auth-service/accounts"
	"github.com/leetbase/auth-service/internal/httperr"
	"github.com/leetbase/auth-service/mail"
	"github.com/leetbase/auth-service/oauth"
	"github.com/leetbase/auth-service/otp"
	"github.com/leetbase/auth-service/profiles"
	"github.com/leetbase/auth-service/token"
	"github.com/rs/zerolog/log"
)

// Deps holds the external collaborators the gateway orchestrates.
type Deps struct {
	Accounts accounts.Store
	Profiles profiles.Store
	Pins     otp.Store
	Notifier mail.Notifier
	Provider oauth.Provider
}

// Service implements the gateway operations. All state lives in the injected
// stores; the service itself is safe for concurrent use.
type Service struct {
	deps       Deps
	tokens     *token.Service
	challenges *otp.Challenges
}

// NewService validates dependencies up front so a miswired process fails at
// startup, not on the first request.
func NewService(deps Deps, tokens *token.Service) (*Service, error) {
	if deps.Accounts == nil {
		return nil, errors.New("[NewService] accounts store is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("[NewService] profiles store is required")
	}
	if deps.Pins == nil {
		return nil, errors.New("[NewService] pin store is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("[NewService] notifier is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("[NewService] oauth provider is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token service is required")
	}
	return &Service{
		deps:       deps,
		tokens:     tokens,
		challenges: otp.NewChallenges(deps.Pins),
	}, nil
}

// Session is the credential set issued by a successful login-like operation.
// RefreshToken and CSRFToken travel as cookies; AccessToken and CSRFToken are
// also returned in the response body.
type Session struct {
	Account      accounts.Account
	AccessToken  string
	RefreshToken string
	CSRFToken    string
}

// RegisterInput carries the registration payload. Name and Avatar seed the
// profile record and may be empty.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Name     string
	Avatar   string
}

// Register creates an account plus its profile and logs the new user in.
// Username collisions and email collisions are distinct outcomes, checked in
// that order. If the profile cannot be created the fresh account is deleted
// again so no orphan credential record survives. The verification email is
// sent on a detached task and its failure does not fail registration.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	if input.Username == "" || input.Password == "" || input.Email == "" {
		return nil, httperr.Validation("Missing required fields in payload")
	}

	if _, err := s.deps.Accounts.FindByIdentifier(ctx, input.Username); err == nil {
		return nil, httperr.UsernameConflict(fmt.Sprintf("User with username %s already exists", input.Username))
	} else if !errors.Is(err, accounts.ErrNotFound) {
		return nil, httperr.Upstream("Internal server error", err)
	}
	if _, err := s.deps.Accounts.FindByIdentifier(ctx, input.Email); err == nil {
		return nil, httperr.EmailConflict(fmt.Sprintf("User with email %s already exists", input.Email))
	} else if !errors.Is(err, accounts.ErrNotFound) {
		return nil, httperr.Upstream("Internal server error", err)
	}

	hash, err := accounts.HashPassword(input.Password)
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	account, err := s.deps.Accounts.Create(ctx, accounts.CreateParams{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	name := input.Name
	if name == "" {
		name = "User" + randomSuffix()
	}
	if _, err := s.deps.Profiles.Create(ctx, profiles.Profile{ID: account.ID, Name: name, Avatar: input.Avatar}); err != nil {
		// Compensating rollback: the credential record must not outlive a
		// failed profile creation.
		if delErr := s.deps.Accounts.DeleteByID(ctx, account.ID); delErr != nil {
			log.Err(delErr).Str("account_id", account.ID).Msg("register rollback failed")
		}
		return nil, httperr.Upstream("Internal server error", err)
	}

	session, err := s.startSession(ctx, account)
	if err != nil {
		return nil, err
	}

	s.sendChallengeAsync(otp.PurposeVerify, account.Email)

	return session, nil
}

// Login authenticates by username or email plus password and issues a fresh
// session, replacing whatever refresh token the account held before.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	if identifier == "" || password == "" {
		return nil, httperr.Validation("Missing required fields in payload")
	}

	account, err := s.deps.Accounts.FindByIdentifier(ctx, identifier)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, httperr.NotFound("User not found")
	}
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	if account.PasswordHash == "" || !accounts.CheckPasswordHash(password, account.PasswordHash) {
		return nil, httperr.Unauthenticated("Invalid password")
	}

	return s.startSession(ctx, account)
}

// Refresh exchanges a valid, still-stored refresh token for a new access
// token. The refresh token and CSRF cookie are untouched. A token that
// verifies cryptographically but no longer matches any stored value has been
// revoked or rotated and is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", httperr.Unauthenticated("Refresh Token is required")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	switch {
	case errors.Is(err, token.ErrExpired):
		return "", httperr.Unauthenticated("Refresh token expired")
	case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrNotYetValid):
		return "", httperr.Forbidden("Invalid refresh token")
	case err != nil:
		return "", httperr.Upstream("Internal server error", err)
	}

	if _, err := s.deps.Accounts.FindByRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return "", httperr.Forbidden("Invalid refresh token")
		}
		return "", httperr.Upstream("Internal server error", err)
	}

	access, err := s.tokens.IssueAccess(*claims)
	if err != nil {
		return "", httperr.Upstream("Internal server error", err)
	}
	return access, nil
}

// Logout revokes the session holding refreshToken. It is idempotent and
// never fails the caller: an unknown or absent token is already logged out,
// and store failures are logged rather than surfaced.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	account, err := s.deps.Accounts.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, accounts.ErrNotFound) {
			log.Err(err).Msg("logout lookup failed")
		}
		return
	}

	cleared := ""
	unauthenticated := false
	if _, err := s.deps.Accounts.UpdateByID(ctx, account.ID, accounts.Patch{
		RefreshToken:    &cleared,
		IsAuthenticated: &unauthenticated,
	}); err != nil {
		log.Err(err).Str("account_id", account.ID).Msg("logout revocation failed")
	}
}

// startSession issues a token pair plus CSRF token and persists the refresh
// token on the account, atomically replacing any previous session.
func (s *Service) startSession(ctx context.Context, account *accounts.Account) (*Session, error) {
	payload := token.PayloadFor(account)

	access, err := s.tokens.IssueAccess(payload)
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}
	refresh, err := s.tokens.IssueRefresh(payload)
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}
	csrfToken := uuid.New().String()

	authenticated := true
	updated, err := s.deps.Accounts.UpdateByID(ctx, account.ID, accounts.Patch{
		RefreshToken:    &refresh,
		IsAuthenticated: &authenticated,
	})
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	return &Session{
		Account:      updated.Sanitized(),
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrfToken,
	}, nil
}

// sendChallengeAsync issues and mails an OTP on a detached task. The request
// context is not reused: the response will usually complete before the relay
// does. Failures are logged, never propagated.
func (s *Service) sendChallengeAsync(purpose otp.Purpose, email string) {
	go func() {
		ctx := context.Background()
		if err := s.sendChallenge(ctx, purpose, email); err != nil {
			log.Err(err).Str("email", email).Str("purpose", string(purpose)).Msg("challenge email failed")
		}
	}()
}

func (s *Service) sendChallenge(ctx context.Context, purpose otp.Purpose, email string) error {
	pin, err := s.challenges.Issue(ctx, purpose, email)
	if err != nil {
		return err
	}
	if purpose == otp.PurposeReset {
		return s.deps.Notifier.SendResetOTP(ctx, email, pin)
	}
	return s.deps.Notifier.SendVerifyOTP(ctx, email, pin)
}

func randomSuffix() string {
	return uuid.New().String()[:5]
}

func randomPassword() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
