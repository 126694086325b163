package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "banper:lock:allocation:"
	releaseGrace = 5 * time.Second
	retryBackoff = 25 * time.Millisecond
)

// RedisLocker serializes allocation work across instances with a redis lock.
// The TTL bounds how long a crashed holder keeps an allocation blocked.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker on an existing client
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

// Lock obtains the allocation lock, polling until the wait budget runs out
func (l *RedisLocker) Lock(ctx context.Context, allocationID uuid.UUID) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	key := keyPrefix + allocationID.String()
	held, err := l.client.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryBackoff),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, notObtained(allocationID)
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseGrace)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release allocation lock",
				zap.String("allocation_id", allocationID.String()),
				zap.Error(err),
			)
		}
	}, nil
}

// NewRedisClient connects to redis and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
