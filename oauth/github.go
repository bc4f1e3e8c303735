package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIBase = "https://api.github.com"

var _ Provider = (*GitHub)(nil)

// GitHub implements Provider against the GitHub OAuth2 and REST APIs.
type GitHub struct {
	conf    *oauth2.Config
	apiBase string
}

// GitHubOption adjusts a GitHub provider, primarily for tests.
type GitHubOption func(*GitHub)

// WithEndpoint overrides the OAuth2 authorize/token endpoint.
func WithEndpoint(endpoint oauth2.Endpoint) GitHubOption {
	return func(g *GitHub) {
		g.conf.Endpoint = endpoint
	}
}

// WithAPIBaseURL overrides the REST API base URL.
func WithAPIBaseURL(base string) GitHubOption {
	return func(g *GitHub) {
		g.apiBase = base
	}
}

// NewGitHub builds the provider. Scopes grant read access to the profile and
// email addresses only.
func NewGitHub(clientID, clientSecret string, opts ...GitHubOption) *GitHub {
	g := &GitHub{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: githubAPIBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GitHub) AuthCodeURL() string {
	return g.conf.AuthCodeURL("")
}

func (g *GitHub) FetchIdentity(ctx context.Context, code string) (*Identity, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth.FetchIdentity exchange: %w", err)
	}
	client := g.conf.Client(ctx, tok)

	var profile struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := g.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	identity := &Identity{
		Login:     profile.Login,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			identity.Email = e.Email
			break
		}
	}
	if identity.Email == "" {
		return nil, ErrNoVerifiedEmail
	}
	return identity, nil
}

func (g *GitHub) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("oauth.getJSON %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("oauth.getJSON %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oauth.getJSON %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("oauth.getJSON %s: %w", path, err)
	}
	return nil
}
