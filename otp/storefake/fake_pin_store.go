package storefake

import (
	"context"
	"sync"
	"time"

	"github.com/leetbase/auth-service/otp"
)

var _ otp.Store = (*FakePinStore)(nil)

type entry struct {
	value     string
	expiresAt time.Time
}

// FakePinStore is an in-memory otp.Store for tests. NowTime can be replaced
// to simulate expiry without sleeping.
type FakePinStore struct {
	lock    sync.Mutex
	entries map[string]entry
	NowTime func() time.Time
}

func NewFakePinStore() *FakePinStore {
	return &FakePinStore{
		entries: make(map[string]entry),
		NowTime: time.Now,
	}
}

func (s *FakePinStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entries[key] = entry{value: value, expiresAt: s.NowTime().Add(ttl)}
	return nil
}

func (s *FakePinStore) Get(_ context.Context, key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", otp.ErrChallengeNotFound
	}
	if s.NowTime().After(e.expiresAt) {
		delete(s.entries, key)
		return "", otp.ErrChallengeNotFound
	}
	return e.value, nil
}

func (s *FakePinStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, key)
	return nil
}
