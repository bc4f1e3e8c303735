// Package redisrepo persists accounts in Redis. Each account is a JSON
// record under its ID key, with username, email and refresh-token index keys
// pointing back at the ID.
package redisrepo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/leetbase/auth-service/accounts"
)

const (
	accountKeyPrefix  = "acct:id:"
	usernameKeyPrefix = "acct:username:"
	emailKeyPrefix    = "acct:email:"
	refreshKeyPrefix  = "acct:refresh:"
)

// record carries every persisted field. The domain Account hides the hash
// and refresh token from its JSON form, so storage needs its own shape.
type record struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"passwordHash"`
	Role            string    `json:"role"`
	RefreshToken    string    `json:"refreshToken"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type AccountRepo struct {
	redis redis.UniversalClient
}

var _ accounts.Store = (*AccountRepo)(nil)

func New(client redis.UniversalClient) *AccountRepo {
	return &AccountRepo{redis: client}
}

func (r *AccountRepo) Create(ctx context.Context, params accounts.CreateParams) (*accounts.Account, error) {
	role := params.Role
	if role == "" {
		role = accounts.RoleUser
	}
	now := time.Now().UTC()
	rec := record{
		ID:              uuid.New().String(),
		Username:        params.Username,
		Email:           params.Email,
		PasswordHash:    params.PasswordHash,
		Role:            string(role),
		IsAuthenticated: params.IsAuthenticated,
		IsEmailVerified: params.IsEmailVerified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Claim the unique indexes first so two concurrent creates cannot both
	// win the same username or email.
	claimed, err := r.redis.SetNX(ctx, usernameKey(rec.Username), rec.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("[AccountRepo Create] failed to claim username: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("[AccountRepo Create] username %q is already taken", rec.Username)
	}
	claimed, err = r.redis.SetNX(ctx, emailKey(rec.Email), rec.ID, 0).Result()
	if err != nil || !claimed {
		r.redis.Del(ctx, usernameKey(rec.Username))
		if err != nil {
			return nil, fmt.Errorf("[AccountRepo Create] failed to claim email: %w", err)
		}
		return nil, fmt.Errorf("[AccountRepo Create] email %q is already taken", rec.Email)
	}

	if err := r.save(ctx, rec); err != nil {
		r.redis.Del(ctx, usernameKey(rec.Username), emailKey(rec.Email))
		return nil, err
	}
	return toAccount(rec), nil
}

func (r *AccountRepo) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccount(*rec), nil
}

func (r *AccountRepo) FindByIdentifier(ctx context.Context, identifier string) (*accounts.Account, error) {
	id, err := r.redis.Get(ctx, usernameKey(identifier)).Result()
	if err == redis.Nil {
		id, err = r.redis.Get(ctx, emailKey(identifier)).Result()
	}
	if err == redis.Nil {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[AccountRepo FindByIdentifier] index lookup failed: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *AccountRepo) FindByRefreshToken(ctx context.Context, token string) (*accounts.Account, error) {
	if token == "" {
		return nil, accounts.ErrNotFound
	}
	id, err := r.redis.Get(ctx, refreshKey(token)).Result()
	if err == redis.Nil {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[AccountRepo FindByRefreshToken] index lookup failed: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *AccountRepo) UpdateByID(ctx context.Context, id string, patch accounts.Patch) (*accounts.Account, error) {
	var updated record

	// Watch makes the read-modify-write atomic: a concurrent update aborts
	// the transaction and the whole closure retries.
	const maxRetries = 4
	for i := 0; i < maxRetries; i++ {
		err := r.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, accountKey(id)).Bytes()
			if err == redis.Nil {
				return accounts.ErrNotFound
			}
			if err != nil {
				return err
			}
			var rec record
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}

			oldRefresh := rec.RefreshToken
			applyPatch(&rec, patch)
			rec.UpdatedAt = time.Now().UTC()

			encoded, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, accountKey(id), encoded, 0)
				if oldRefresh != rec.RefreshToken {
					if oldRefresh != "" {
						pipe.Del(ctx, refreshKey(oldRefresh))
					}
					if rec.RefreshToken != "" {
						pipe.Set(ctx, refreshKey(rec.RefreshToken), rec.ID, 0)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			updated = rec
			return nil
		}, accountKey(id))

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if err == accounts.ErrNotFound {
				return nil, accounts.ErrNotFound
			}
			return nil, fmt.Errorf("[AccountRepo UpdateByID] update failed: %w", err)
		}
		return toAccount(updated), nil
	}
	return nil, fmt.Errorf("[AccountRepo UpdateByID] update contention on account %s", id)
}

func (r *AccountRepo) DeleteByID(ctx context.Context, id string) error {
	rec, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	keys := []string{accountKey(id), usernameKey(rec.Username), emailKey(rec.Email)}
	if rec.RefreshToken != "" {
		keys = append(keys, refreshKey(rec.RefreshToken))
	}
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("[AccountRepo DeleteByID] delete failed: %w", err)
	}
	return nil
}

func (r *AccountRepo) save(ctx context.Context, rec record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("[AccountRepo save] failed to encode account: %w", err)
	}
	if err := r.redis.Set(ctx, accountKey(rec.ID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("[AccountRepo save] failed to store account: %w", err)
	}
	return nil
}

func (r *AccountRepo) load(ctx context.Context, id string) (*record, error) {
	data, err := r.redis.Get(ctx, accountKey(id)).Bytes()
	if err == redis.Nil {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[AccountRepo load] failed to read account: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("[AccountRepo load] failed to decode account: %w", err)
	}
	return &rec, nil
}

func applyPatch(rec *record, patch accounts.Patch) {
	if patch.PasswordHash != nil {
		rec.PasswordHash = *patch.PasswordHash
	}
	if patch.RefreshToken != nil {
		rec.RefreshToken = *patch.RefreshToken
	}
	if patch.IsAuthenticated != nil {
		rec.IsAuthenticated = *patch.IsAuthenticated
	}
	if patch.IsEmailVerified != nil {
		rec.IsEmailVerified = *patch.IsEmailVerified
	}
}

func toAccount(rec record) *accounts.Account {
	return &accounts.Account{
		ID:              rec.ID,
		Username:        rec.Username,
		Email:           rec.Email,
		PasswordHash:    rec.PasswordHash,
		Role:            accounts.Role(rec.Role),
		RefreshToken:    rec.RefreshToken,
		IsAuthenticated: rec.IsAuthenticated,
		IsEmailVerified: rec.IsEmailVerified,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func accountKey(id string) string { return accountKeyPrefix + id }

func usernameKey(username string) string {
	return usernameKeyPrefix + strings.ToLower(username)
}

func emailKey(email string) string { return emailKeyPrefix + strings.ToLower(email) }

// refreshKey hashes the token so a dump of the keyspace never exposes a
// usable credential.
func refreshKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return refreshKeyPrefix + hex.EncodeToString(sum[:])
}
