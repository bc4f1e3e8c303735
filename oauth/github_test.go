package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leetbase/auth-service/oauth"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGitHub(t *testing.T, emailsJSON string) *oauth.GitHub {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat","name":"Octo Cat","avatar_url":"https://example.com/a.png"}`))
	})
	mux.HandleFunc("GET /user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(emailsJSON))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return oauth.NewGitHub("client-id", "client-secret",
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:  srv.URL + "/authorize",
			TokenURL: srv.URL + "/token",
		}),
		oauth.WithAPIBaseURL(srv.URL),
	)
}

func TestFetchIdentityPicksVerifiedPrimaryEmail(t *testing.T) {
	provider := newFakeGitHub(t, `[
		{"email":"old@x.com","primary":false,"verified":true},
		{"email":"unverified@x.com","primary":true,"verified":false},
		{"email":"octo@x.com","primary":true,"verified":true}
	]`)

	identity, err := provider.FetchIdentity(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, "octocat", identity.Login)
	require.Equal(t, "Octo Cat", identity.Name)
	require.Equal(t, "octo@x.com", identity.Email)
}

func TestFetchIdentityRejectsWithoutVerifiedPrimary(t *testing.T) {
	provider := newFakeGitHub(t, `[{"email":"unverified@x.com","primary":true,"verified":false}]`)

	_, err := provider.FetchIdentity(context.Background(), "good-code")
	require.ErrorIs(t, err, oauth.ErrNoVerifiedEmail)
}
