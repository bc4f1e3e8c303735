package repofake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leetbase/auth-service/profiles"
)

var _ profiles.Store = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profiles.Store for tests. FailCreate makes
// the next Create call fail, to exercise the registration rollback path.
type FakeProfileRepo struct {
	lock       sync.RWMutex
	byID       map[string]*profiles.Profile
	FailCreate bool
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{byID: make(map[string]*profiles.Profile)}
}

func (r *FakeProfileRepo) Create(_ context.Context, profile profiles.Profile) (*profiles.Profile, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.FailCreate {
		return nil, errors.New("profile store unavailable")
	}
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	cp := profile
	r.byID[profile.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeProfileRepo) FindByID(_ context.Context, id string) (*profiles.Profile, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *FakeProfileRepo) DeleteByID(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.byID, id)
	return nil
}
