// Package token issues and verifies the signed access and refresh tokens.
// Tokens are HS256 JWTs carrying a snapshot of the account at issuance time;
// verification checks signature and expiry only, never live account state.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leetbase/auth-service/accounts"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var (
	// ErrExpired means the token was valid but its lifetime has passed.
	ErrExpired = errors.New("token expired")
	// ErrMalformed covers bad encoding, wrong signature, and invalid claims.
	ErrMalformed = errors.New("token malformed")
	// ErrNotYetValid means the token's nbf lies in the future.
	ErrNotYetValid = errors.New("token not yet valid")
)

// Claims is the payload shared by access and refresh tokens. Subject carries
// the account ID.
type Claims struct {
	Username   string        `json:"username"`
	Role       accounts.Role `json:"role"`
	Email      string        `json:"email"`
	IsVerified bool          `json:"isVerified"`
	jwt.RegisteredClaims
}

// Service signs and verifies token pairs. Access and refresh tokens use
// distinct secrets so leaking one cannot forge the other.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewService validates the secrets and TTLs. A missing secret is a
// configuration error; callers should treat it as fatal at startup.
func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token.NewService: signing secrets must not be empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token.NewService: TTLs must be positive")
	}
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// PayloadFor builds the claim payload for an account.
func PayloadFor(a *accounts.Account) Claims {
	return Claims{
		Username:   a.Username,
		Role:       a.Role,
		Email:      a.Email,
		IsVerified: a.IsEmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: a.ID,
		},
	}
}

// IssueAccess signs a short-lived access token for the given payload.
func (s *Service) IssueAccess(payload Claims) (string, error) {
	return sign(payload, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a refresh token for the given payload.
func (s *Service) IssueRefresh(payload Claims) (string, error) {
	return sign(payload, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess checks signature and expiry against the access secret.
func (s *Service) VerifyAccess(tokenStr string) (*Claims, error) {
	return verify(tokenStr, s.accessSecret)
}

// VerifyRefresh checks signature and expiry against the refresh secret.
func (s *Service) VerifyRefresh(tokenStr string) (*Claims, error) {
	return verify(tokenStr, s.refreshSecret)
}

func sign(payload Claims, secret []byte, ttl time.Duration) (string, error) {
	now := NowTimeFunc()
	payload.IssuedAt = jwt.NewNumericDate(now)
	payload.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	// A unique jti keeps two same-second issuances from colliding.
	payload.ID = uuid.New().String()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token.sign: %w", err)
	}
	return signed, nil
}

func verify(tokenStr string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// mapError collapses the library's error classes onto the service taxonomy.
// Anything unrecognized passes through and is treated as an upstream failure
// by callers.
func mapError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrMalformed
	default:
		return err
	}
}
