package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, "test:"), mr
}

func TestRedisIdempotencyStore_Lifecycle(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	resp, err := store.Reserve(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.True(t, mr.Exists("test:k"))

	_, err = store.Reserve(ctx, "k", time.Hour)
	assert.ErrorIs(t, err, ErrKeyInFlight)

	require.NoError(t, store.Complete(ctx, "k", StoredResponse{
		Status:      201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"1"}`),
	}, time.Hour))

	resp, err = store.Reserve(ctx, "k", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.JSONEq(t, `{"id":"1"}`, string(resp.Body))
}

func TestRedisIdempotencyStore_ReleaseAndExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k"))
	assert.False(t, mr.Exists("test:k"))

	_, err = store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	resp, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestRedisIdempotencyStore_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, "")
	_, err := store.Reserve(context.Background(), "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists(defaultKeyPrefix+"abc"))
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Reserve(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reserve idempotency key")
}
