// Package redisstore implements the otp.Store contract on Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leetbase/auth-service/otp"
	"github.com/redis/go-redis/v9"
)

var _ otp.Store = (*Store)(nil)

// Store keeps challenges in Redis with native key expiry.
type Store struct {
	client redis.UniversalClient
}

// New wraps an existing Redis client. The client is owned by the caller.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// NewFromURL dials Redis from a REDIS_URL style connection string.
func NewFromURL(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore.NewFromURL: %w", err)
	}
	return New(redis.NewClient(opts)), nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore.Set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", otp.ErrChallengeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redisstore.Get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redisstore.Delete %q: %w", key, err)
	}
	return nil
}
