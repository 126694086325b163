package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "banper:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore on Redis so that every
// instance sees the same keys
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Reserve claims key with SET NX; on collision the stored record decides the outcome
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (*StoredResponse, error) {
	pending, err := json.Marshal(record{})
	if err != nil {
		return nil, err
	}

	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, pending, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, ttl)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	if !rec.Done || rec.Response == nil {
		return nil, ErrKeyInFlight
	}
	return rec.Response, nil
}

// Complete overwrites the reservation with the response
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(record{Done: true, Response: &resp})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Release deletes the key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
