package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewInMemoryIdempotencyStore(time.Hour)
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("first reservation wins", func(t *testing.T) {
		resp, err := store.Reserve(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("second reservation sees the key in flight", func(t *testing.T) {
		_, err := store.Reserve(ctx, "k1", time.Hour)
		assert.ErrorIs(t, err, ErrKeyInFlight)
	})

	t.Run("completed key replays the response", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "k1", StoredResponse{
			Status:      201,
			ContentType: "application/json",
			Body:        []byte(`{"ok":true}`),
		}, time.Hour))

		resp, err := store.Reserve(ctx, "k1", time.Hour)
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 201, resp.Status)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	})

	t.Run("released key can be reserved again", func(t *testing.T) {
		_, err := store.Reserve(ctx, "k2", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "k2"))

		resp, err := store.Reserve(ctx, "k2", time.Hour)
		require.NoError(t, err)
		assert.Nil(t, resp)
	})
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "k", StoredResponse{Status: 200}, time.Minute))

	clock.Advance(2 * time.Minute)

	resp, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, resp, "expired key should be reservable")

	clock.Advance(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentReserve(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Reserve(ctx, "shared", time.Hour); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Millisecond)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
