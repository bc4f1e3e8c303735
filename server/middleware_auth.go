package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/leetbase/auth-service/accounts"
	"github.com/leetbase/auth-service/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the authenticated Principal
const ContextKeyPrincipal ContextKey = "principal"

// Principal is what the access guard attaches to the request context once a
// bearer token has been verified against a live account record.
type Principal struct {
	Claims  *token.Claims
	Account accounts.Account
}

// PrincipalFromContext returns the Principal set by RequireAuth, or nil when
// the request never passed through the guard.
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(ContextKeyPrincipal).(*Principal)
	return principal
}

type guardConfig struct {
	requireEmailVerified bool
	requireCSRF          bool
	allowServiceBypass   bool
	roles                []accounts.Role
}

// GuardOption adjusts what RequireAuth enforces on top of token verification.
type GuardOption func(*guardConfig)

func WithoutEmailVerification() GuardOption {
	return func(g *guardConfig) { g.requireEmailVerified = false }
}

func WithoutCSRF() GuardOption {
	return func(g *guardConfig) { g.requireCSRF = false }
}

// WithServiceBypass lets trusted internal callers holding the shared service
// token skip the CSRF and email-verification checks. Token verification and
// role checks still apply.
func WithServiceBypass() GuardOption {
	return func(g *guardConfig) { g.allowServiceBypass = true }
}

func WithRoles(roles ...accounts.Role) GuardOption {
	return func(g *guardConfig) { g.roles = roles }
}

// RequireAuth verifies the bearer access token, confirms the account still
// exists and has not been logged out, and enforces the configured CSRF,
// email-verification and role checks. By default email verification and
// CSRF are both required.
func (s *Server) RequireAuth(opts ...GuardOption) func(http.HandlerFunc) http.HandlerFunc {
	guard := guardConfig{
		requireEmailVerified: true,
		requireCSRF:          true,
	}
	for _, opt := range opts {
		opt(&guard)
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusForbidden, "Access token is required for authentication")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				writeError(w, http.StatusBadRequest, "Invalid authorization header format")
				return
			}

			claims, err := s.tokens.VerifyAccess(parts[1])
			if err != nil {
				status, message := verifyFailure(err)
				writeError(w, status, message)
				return
			}

			if claims.Subject == "" || claims.Username == "" || claims.Email == "" || !claims.Role.Valid() {
				writeError(w, http.StatusBadRequest, "Missing required fields in payload")
				return
			}

			// Logout revokes sessions immediately, so the token alone is not
			// enough: the account record decides whether it is still live. A
			// store outage is not a revoked session and must not read as one.
			account, err := s.accounts.FindByID(r.Context(), claims.Subject)
			if err != nil && !errors.Is(err, accounts.ErrNotFound) {
				log.Err(err).Str("account_id", claims.Subject).Msg("account reload failed")
				writeError(w, http.StatusInternalServerError, "Authentication error")
				return
			}
			if err != nil || !account.IsAuthenticated {
				writeError(w, http.StatusUnauthorized, "User is not authenticated")
				return
			}

			bypass := guard.allowServiceBypass && s.isServiceCall(r)

			if !bypass && guard.requireEmailVerified && !account.IsEmailVerified {
				writeError(w, http.StatusForbidden, "Email is not verified")
				return
			}

			if !bypass && guard.requireCSRF && r.Method != http.MethodGet {
				if err := matchCSRF(r); err != nil {
					writeError(w, http.StatusForbidden, "CSRF token mismatch")
					return
				}
			}

			if len(guard.roles) > 0 && !slices.Contains(guard.roles, account.Role) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			principal := &Principal{Claims: claims, Account: account.Sanitized()}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyPrincipal, principal)))
		}
	}
}

func (s *Server) isServiceCall(r *http.Request) bool {
	header := r.Header.Get("X-Service-Token")
	if header == "" || s.config.ServiceToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(s.config.ServiceToken)) == 1
}

// matchCSRF implements the double-submit check: the header must equal the
// cookie the browser sends along with it.
func matchCSRF(r *http.Request) error {
	header := r.Header.Get("X-CSRF-Token")
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || header == "" || cookie.Value == "" {
		return errors.New("csrf token missing")
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
		return errors.New("csrf token mismatch")
	}
	return nil
}

func verifyFailure(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, token.ErrNotYetValid):
		return http.StatusUnauthorized, "Token is not yet active"
	case errors.Is(err, token.ErrMalformed):
		return http.StatusUnauthorized, "Invalid token"
	default:
		return http.StatusInternalServerError, "Authentication error"
	}
}
