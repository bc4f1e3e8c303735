// Package redisrepo persists profiles in Redis as JSON records keyed by the
// shared account ID.
package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leetbase/auth-service/profiles"
)

const profileKeyPrefix = "profile:id:"

type ProfileRepo struct {
	redis redis.UniversalClient
}

var _ profiles.Store = (*ProfileRepo)(nil)

func New(client redis.UniversalClient) *ProfileRepo {
	return &ProfileRepo{redis: client}
}

func (r *ProfileRepo) Create(ctx context.Context, profile profiles.Profile) (*profiles.Profile, error) {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	encoded, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("[ProfileRepo Create] failed to encode profile: %w", err)
	}
	if err := r.redis.Set(ctx, profileKey(profile.ID), encoded, 0).Err(); err != nil {
		return nil, fmt.Errorf("[ProfileRepo Create] failed to store profile: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepo) FindByID(ctx context.Context, id string) (*profiles.Profile, error) {
	data, err := r.redis.Get(ctx, profileKey(id)).Bytes()
	if err == redis.Nil {
		return nil, profiles.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[ProfileRepo FindByID] failed to read profile: %w", err)
	}
	var profile profiles.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("[ProfileRepo FindByID] failed to decode profile: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, profileKey(id)).Err(); err != nil {
		return fmt.Errorf("[ProfileRepo DeleteByID] delete failed: %w", err)
	}
	return nil
}

func profileKey(id string) string { return profileKeyPrefix + id }
