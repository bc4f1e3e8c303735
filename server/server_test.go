package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leetbase/auth-service/accounts"
	accountsfake "github.com/leetbase/auth-service/accounts/repofake"
	"github.com/leetbase/auth-service/auth"
	"github.com/leetbase/auth-service/internal/config"
	"github.com/leetbase/auth-service/mail/mailfake"
	"github.com/leetbase/auth-service/oauth"
	"github.com/leetbase/auth-service/oauth/providerfake"
	"github.com/leetbase/auth-service/otp/storefake"
	profilesfake "github.com/leetbase/auth-service/profiles/repofake"
	"github.com/leetbase/auth-service/server"
	"github.com/leetbase/auth-service/token"
	"github.com/stretchr/testify/require"
)

const (
	testServiceToken = "internal-service-secret"
	testAppURL       = "https://app.example"
)

// flakyAccountStore passes through to the fake repo until FindByIDErr is
// set, simulating a store outage on the guard's reload path.
type flakyAccountStore struct {
	accounts.Store
	FindByIDErr error
}

func (s *flakyAccountStore) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	if s.FindByIDErr != nil {
		return nil, s.FindByIDErr
	}
	return s.Store.FindByID(ctx, id)
}

type serverFixture struct {
	accounts *accountsfake.FakeAccountRepo
	store    *flakyAccountStore
	notifier *mailfake.FakeNotifier
	provider *providerfake.FakeProvider
	tokens   *token.Service
	server   *server.Server
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		accounts: accountsfake.NewFakeAccountRepo(),
		notifier: mailfake.NewFakeNotifier(),
		provider: providerfake.NewFakeProvider(),
	}
	f.store = &flakyAccountStore{Store: f.accounts}

	tokens, err := token.NewService("access-secret-1", "refresh-secret-1", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	f.tokens = tokens

	cfg := config.Config{
		Port:            "8080",
		AppName:         "LeetBase Auth",
		Env:             "TEST",
		AppURL:          testAppURL,
		ServiceToken:    testServiceToken,
		RefreshTokenTTL: 24 * time.Hour,
	}

	srv, err := server.New(cfg, auth.Deps{
		Accounts: f.store,
		Profiles: profilesfake.NewFakeProfileRepo(),
		Pins:     storefake.NewFakePinStore(),
		Notifier: f.notifier,
		Provider: f.provider,
	}, tokens)
	require.NoError(t, err)
	f.server = srv

	return f
}

type sessionBody struct {
	User        accounts.Account `json:"user"`
	AccessToken string           `json:"accessToken"`
	CSRFToken   string           `json:"csrfToken"`
}

func (f *serverFixture) do(t *testing.T, method, path string, body any, modify ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, mod := range modify {
		mod(req)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) registerUser(t *testing.T, username, email string) sessionBody {
	t.Helper()

	rec := f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": username,
		"password": "Password1!",
		"email":    email,
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	return session
}

func (f *serverFixture) waitForPin(t *testing.T, kind, email string) string {
	t.Helper()

	var pin string
	require.Eventually(t, func() bool {
		for _, sent := range f.notifier.SentMessages() {
			if sent.Kind == kind && sent.Email == email {
				pin = sent.Pin
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return pin
}

func requireMessage(t *testing.T, rec *httptest.ResponseRecorder, message string) {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, message, body.Message)
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestHealthz(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, server.RouteHealthz, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterSetsSessionCookies(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "octocat",
		"password": "Password1!",
		"email":    "octocat@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.CSRFToken)
	require.Equal(t, "octocat", session.User.Username)

	refreshCookie := findCookie(t, rec, "refresh_token")
	require.True(t, refreshCookie.HttpOnly)
	require.Equal(t, "/", refreshCookie.Path)
	require.Equal(t, int((24 * time.Hour).Seconds()), refreshCookie.MaxAge)

	csrfCookie := findCookie(t, rec, "_csrf")
	require.True(t, csrfCookie.HttpOnly)
	require.Equal(t, session.CSRFToken, csrfCookie.Value)
}

func TestRegisterConflictStatuses(t *testing.T) {
	f := setupServer(t)
	f.registerUser(t, "octocat", "octocat@example.com")

	rec := f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "octocat",
		"password": "Password1!",
		"email":    "fresh@example.com",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "fresh",
		"password": "Password1!",
		"email":    "octocat@example.com",
	})
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := setupServer(t)
	f.registerUser(t, "octocat", "octocat@example.com")

	rec := f.do(t, http.MethodPost, server.RouteLogin, map[string]string{
		"username": "octocat",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireMessage(t, rec, "Invalid password")
}

func TestRefreshUsesCookie(t *testing.T) {
	f := setupServer(t)
	session := f.registerUser(t, "octocat", "octocat@example.com")

	account, err := f.accounts.FindByIdentifier(context.Background(), "octocat")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, server.RouteRefresh, nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: account.RefreshToken})
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)

	claims, err := f.tokens.VerifyAccess(body.AccessToken)
	require.NoError(t, err)
	require.Equal(t, session.User.ID, claims.Subject)
}

func TestRefreshWithoutCookie(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, server.RouteRefresh, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireMessage(t, rec, "Refresh Token is required")
}

func TestLogoutClearsSession(t *testing.T) {
	f := setupServer(t)
	session := f.registerUser(t, "octocat", "octocat@example.com")

	account, err := f.accounts.FindByIdentifier(context.Background(), "octocat")
	require.NoError(t, err)
	refreshToken := account.RefreshToken

	rec := f.do(t, http.MethodGet, server.RouteLogout, nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Negative(t, findCookie(t, rec, "refresh_token").MaxAge)
	require.Negative(t, findCookie(t, rec, "_csrf").MaxAge)

	// The revoked session no longer refreshes or authenticates.
	rec = f.do(t, http.MethodGet, server.RouteRefresh, nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+session.AccessToken)
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireMessage(t, rec, "User is not authenticated")
}

func TestVerifyEmailFlow(t *testing.T) {
	f := setupServer(t)
	f.registerUser(t, "octocat", "octocat@example.com")
	pin := f.waitForPin(t, "verify", "octocat@example.com")

	rec := f.do(t, http.MethodPost, server.RouteVerifyEmail, map[string]string{
		"email": "octocat@example.com",
		"pin":   pin,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var session sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	require.True(t, session.User.IsEmailVerified)
}

func TestPasswordResetFlow(t *testing.T) {
	f := setupServer(t)
	f.registerUser(t, "octocat", "octocat@example.com")

	rec := f.do(t, http.MethodPost, server.RouteForgotPassword, map[string]string{
		"email": "octocat@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	requireMessage(t, rec, "Email sent successfully")

	pin := f.waitForPin(t, "reset", "octocat@example.com")

	rec = f.do(t, http.MethodPost, server.RouteResetPassword, map[string]string{
		"email":    "octocat@example.com",
		"pin":      pin,
		"password": "NewPassword1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	requireMessage(t, rec, "Password reset successfully")

	rec = f.do(t, http.MethodPost, server.RouteLogin, map[string]string{
		"username": "octocat",
		"password": "NewPassword1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAccessGuard(t *testing.T) {
	f := setupServer(t)
	session := f.registerUser(t, "octocat", "octocat@example.com")

	t.Run("missing authorization header", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteMe, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		requireMessage(t, rec, "Access token is required for authentication")
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Token abc")
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		requireMessage(t, rec, "Invalid authorization header format")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.token")
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		requireMessage(t, rec, "Invalid token")
	})

	t.Run("expired token", func(t *testing.T) {
		token.NowTimeFunc = func() time.Time { return time.Now().Add(-16 * time.Minute) }
		expired, err := f.tokens.IssueAccess(token.PayloadFor(&session.User))
		token.NowTimeFunc = time.Now
		require.NoError(t, err)

		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+expired)
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		requireMessage(t, rec, "Token has expired")
	})

	t.Run("store failure is not a revoked session", func(t *testing.T) {
		f.store.FindByIDErr = errors.New("redis: connection refused")
		defer func() { f.store.FindByIDErr = nil }()

		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+session.AccessToken)
		})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		requireMessage(t, rec, "Authentication error")
	})

	t.Run("unverified email", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+session.AccessToken)
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		requireMessage(t, rec, "Email is not verified")
	})

	t.Run("service bypass skips verification", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+session.AccessToken)
			r.Header.Set("X-Service-Token", testServiceToken)
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong service token does not bypass", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+session.AccessToken)
			r.Header.Set("X-Service-Token", "guessed")
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("verified account passes", func(t *testing.T) {
		pin := f.waitForPin(t, "verify", "octocat@example.com")
		rec := f.do(t, http.MethodPost, server.RouteVerifyEmail, map[string]string{
			"email": "octocat@example.com",
			"pin":   pin,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, server.RouteMe, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+session.AccessToken)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			User accounts.Account `json:"user"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "octocat", body.User.Username)
	})
}

// loginAdmin seeds a verified admin account and logs it in over HTTP.
func loginAdmin(t *testing.T, f *serverFixture) sessionBody {
	t.Helper()

	hash, err := accounts.HashPassword("AdminPass1!")
	require.NoError(t, err)
	_, err = f.accounts.Create(context.Background(), accounts.CreateParams{
		Username:        "root",
		Email:           "root@example.com",
		PasswordHash:    hash,
		Role:            accounts.RoleAdmin,
		IsEmailVerified: true,
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, server.RouteLogin, map[string]string{
		"username": "root",
		"password": "AdminPass1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var session sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	return session
}

func TestAdminDeleteGuards(t *testing.T) {
	f := setupServer(t)
	target := f.registerUser(t, "victim", "victim@example.com")
	admin := loginAdmin(t, f)
	path := fmt.Sprintf("/v1/admin/users/%s", target.User.ID)

	t.Run("csrf mismatch", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, path, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+admin.AccessToken)
			r.AddCookie(&http.Cookie{Name: "_csrf", Value: admin.CSRFToken})
			r.Header.Set("X-CSRF-Token", "forged")
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		requireMessage(t, rec, "CSRF token mismatch")
	})

	t.Run("missing csrf header", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, path, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+admin.AccessToken)
			r.AddCookie(&http.Cookie{Name: "_csrf", Value: admin.CSRFToken})
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("non-admin role", func(t *testing.T) {
		pin := f.waitForPin(t, "verify", "victim@example.com")
		rec := f.do(t, http.MethodPost, server.RouteVerifyEmail, map[string]string{
			"email": "victim@example.com",
			"pin":   pin,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var verified sessionBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&verified))

		rec = f.do(t, http.MethodDelete, path, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+verified.AccessToken)
			r.AddCookie(&http.Cookie{Name: "_csrf", Value: verified.CSRFToken})
			r.Header.Set("X-CSRF-Token", verified.CSRFToken)
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		requireMessage(t, rec, "Insufficient permissions")
	})

	t.Run("unknown user id", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/v1/admin/users/no-such-id", nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+admin.AccessToken)
			r.AddCookie(&http.Cookie{Name: "_csrf", Value: admin.CSRFToken})
			r.Header.Set("X-CSRF-Token", admin.CSRFToken)
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		requireMessage(t, rec, "User not found")
	})

	t.Run("admin with matching csrf", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, path, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+admin.AccessToken)
			r.AddCookie(&http.Cookie{Name: "_csrf", Value: admin.CSRFToken})
			r.Header.Set("X-CSRF-Token", admin.CSRFToken)
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		_, err := f.accounts.FindByID(context.Background(), target.User.ID)
		require.ErrorIs(t, err, accounts.ErrNotFound)
	})
}

func TestGithubRedirect(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, server.RouteGithub, nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, f.provider.AuthCodeURL(), rec.Header().Get("Location"))
}

func TestGithubCallback(t *testing.T) {
	f := setupServer(t)
	f.provider.Identities["code123"] = &oauth.Identity{
		Login: "octocat",
		Name:  "Octo Cat",
		Email: "octocat@example.com",
	}

	rec := f.do(t, http.MethodGet, server.RouteGithubCallback+"?code=code123", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, testAppURL+"?"))
	require.Contains(t, location, "accessToken=")
	require.Contains(t, location, "csrfToken=")

	findCookie(t, rec, "refresh_token")
	findCookie(t, rec, "_csrf")
}

func TestGithubCallbackWithoutCode(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, server.RouteGithubCallback, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireMessage(t, rec, "Missing code in query")
}
