package otp

import (
	"context"
	"errors"
	"time"
)

// ErrChallengeNotFound is returned by Get when a key is absent or expired.
var ErrChallengeNotFound = errors.New("challenge not found")

// Store is the ephemeral pin-store boundary: a key to short-string mapping
// with per-key expiry. Implementations must apply Set atomically so that
// re-issuing a challenge overwrites the previous value and TTL together.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
