package providerfake

import (
	"context"
	"errors"

	"github.com/leetbase/auth-service/oauth"
)

var _ oauth.Provider = (*FakeProvider)(nil)

// FakeProvider maps authorization codes to canned identities.
type FakeProvider struct {
	Identities map[string]*oauth.Identity
	Err        error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{Identities: make(map[string]*oauth.Identity)}
}

func (p *FakeProvider) AuthCodeURL() string {
	return "https://provider.example/authorize?client_id=fake"
}

func (p *FakeProvider) FetchIdentity(_ context.Context, code string) (*oauth.Identity, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	identity, ok := p.Identities[code]
	if !ok {
		return nil, errors.New("unknown authorization code")
	}
	return identity, nil
}
