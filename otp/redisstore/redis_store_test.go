package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leetbase/auth-service/otp"
	"github.com/leetbase/auth-service/otp/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New(client), mr
}

func TestSetGetDelete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "verify:a@x.com", "pin12345", otp.TTL))

	got, err := store.Get(ctx, "verify:a@x.com")
	require.NoError(t, err)
	require.Equal(t, "pin12345", got)

	require.NoError(t, store.Delete(ctx, "verify:a@x.com"))

	_, err = store.Get(ctx, "verify:a@x.com")
	require.ErrorIs(t, err, otp.ErrChallengeNotFound)
}

func TestSetOverwritesValueAndTTL(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "reset:a@x.com", "first000", otp.TTL))
	mr.FastForward(5 * time.Minute)
	require.NoError(t, store.Set(ctx, "reset:a@x.com", "second00", otp.TTL))

	// The TTL restarts with the new value.
	mr.FastForward(7 * time.Minute)
	got, err := store.Get(ctx, "reset:a@x.com")
	require.NoError(t, err)
	require.Equal(t, "second00", got)
}

func TestGetAfterExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "verify:a@x.com", "pin12345", otp.TTL))
	mr.FastForward(otp.TTL + time.Second)

	_, err := store.Get(ctx, "verify:a@x.com")
	require.ErrorIs(t, err, otp.ErrChallengeNotFound)
}
