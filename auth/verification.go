package auth

import (
	"context"
	"errors"

	"github.com/leetbase/auth-service/accounts"
	"github.com/leetbase/auth-service/internal/httperr"
	"github.com/leetbase/auth-service/otp"
	"github.com/rs/zerolog/log"
)

// VerifyEmail consumes the live verify challenge for email and marks the
// account verified. The challenge is single-use: it is deleted on first
// success. A fresh session is issued as a convenience login.
func (s *Service) VerifyEmail(ctx context.Context, email, pin string) (*Session, error) {
	if email == "" || pin == "" {
		return nil, httperr.Validation("Missing required fields in payload")
	}

	account, err := s.deps.Accounts.FindByIdentifier(ctx, email)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, httperr.NotFound("User not found")
	}
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	if err := s.challenges.Consume(ctx, otp.PurposeVerify, email, pin); err != nil {
		if errors.Is(err, otp.ErrInvalid) {
			return nil, httperr.Validation("Invalid or expired pin")
		}
		return nil, httperr.Upstream("Internal server error", err)
	}

	verified := true
	updated, err := s.deps.Accounts.UpdateByID(ctx, account.ID, accounts.Patch{IsEmailVerified: &verified})
	if err != nil {
		return nil, httperr.Upstream("Internal server error", err)
	}

	return s.startSession(ctx, updated)
}

// ResendChallenge re-issues the OTP for (purpose, email), overwriting any
// prior challenge. Unlike the registration path this is an explicit request,
// so delivery failures are propagated.
func (s *Service) ResendChallenge(ctx context.Context, purpose otp.Purpose, email string) error {
	if email == "" || purpose == "" {
		return httperr.Validation("Missing required fields in payload")
	}
	if !purpose.Valid() {
		return httperr.Validation("Invalid action")
	}

	if err := s.sendChallenge(ctx, purpose, email); err != nil {
		return httperr.Upstream("Internal server error", err)
	}
	return nil
}

// ForgotPassword starts a password reset by mailing a reset OTP. The 404 for
// an unknown email leaks account existence; that mirrors the public API and
// is deliberate. Delivery runs detached, like the registration email.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return httperr.Validation("Missing required fields in payload")
	}

	if _, err := s.deps.Accounts.FindByIdentifier(ctx, email); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return httperr.NotFound("User not found")
		}
		return httperr.Upstream("Internal server error", err)
	}

	s.sendChallengeAsync(otp.PurposeReset, email)
	return nil
}

// ResetPassword consumes the live reset challenge and replaces the account
// password. It does not log the user in; existing sessions stay untouched.
func (s *Service) ResetPassword(ctx context.Context, email, pin, newPassword string) error {
	if email == "" || pin == "" || newPassword == "" {
		return httperr.Validation("Missing required fields in payload")
	}

	account, err := s.deps.Accounts.FindByIdentifier(ctx, email)
	if errors.Is(err, accounts.ErrNotFound) {
		return httperr.NotFound("User not found")
	}
	if err != nil {
		return httperr.Upstream("Internal server error", err)
	}

	if err := s.challenges.Consume(ctx, otp.PurposeReset, email, pin); err != nil {
		if errors.Is(err, otp.ErrInvalid) {
			return httperr.Validation("Invalid or expired pin")
		}
		return httperr.Upstream("Internal server error", err)
	}

	hash, err := accounts.HashPassword(newPassword)
	if err != nil {
		return httperr.Upstream("Internal server error", err)
	}
	if _, err := s.deps.Accounts.UpdateByID(ctx, account.ID, accounts.Patch{PasswordHash: &hash}); err != nil {
		return httperr.Upstream("Internal server error", err)
	}

	log.Info().Str("account_id", account.ID).Msg("password reset")
	return nil
}
