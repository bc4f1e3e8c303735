package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leetbase/auth-service/accounts"
)

var _ accounts.Store = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory accounts.Store for tests.
type FakeAccountRepo struct {
	lock    sync.RWMutex
	byID    map[string]*accounts.Account
	nowTime func() time.Time
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		byID:    make(map[string]*accounts.Account),
		nowTime: time.Now,
	}
}

func (r *FakeAccountRepo) FindByIdentifier(_ context.Context, identifier string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, a := range r.byID {
		if a.Username == identifier || a.Email == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (r *FakeAccountRepo) FindByID(_ context.Context, id string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *FakeAccountRepo) FindByRefreshToken(_ context.Context, token string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if token == "" {
		return nil, accounts.ErrNotFound
	}
	for _, a := range r.byID {
		if a.RefreshToken == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (r *FakeAccountRepo) Create(_ context.Context, params accounts.CreateParams) (*accounts.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	role := params.Role
	if role == "" {
		role = accounts.RoleUser
	}
	now := r.nowTime()
	a := &accounts.Account{
		ID:              uuid.New().String(),
		Username:        params.Username,
		Email:           params.Email,
		PasswordHash:    params.PasswordHash,
		Role:            role,
		IsEmailVerified: params.IsEmailVerified,
		IsAuthenticated: params.IsAuthenticated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.byID[a.ID] = a
	cp := *a
	return &cp, nil
}

func (r *FakeAccountRepo) UpdateByID(_ context.Context, id string, patch accounts.Patch) (*accounts.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.RefreshToken != nil {
		a.RefreshToken = *patch.RefreshToken
	}
	if patch.IsAuthenticated != nil {
		a.IsAuthenticated = *patch.IsAuthenticated
	}
	if patch.IsEmailVerified != nil {
		a.IsEmailVerified = *patch.IsEmailVerified
	}
	a.UpdatedAt = r.nowTime()
	cp := *a
	return &cp, nil
}

func (r *FakeAccountRepo) DeleteByID(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byID[id]; !ok {
		return accounts.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
