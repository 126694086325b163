package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/banper/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const memoryCleanupInterval = 5 * time.Minute

// NewIdempotencyStore builds the store selected by http.idempotency.backend.
// The returned close function stops the cleanup loop or closes the redis client.
func NewIdempotencyStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (IdempotencyStore, func() error, error) {
	switch cfg.HTTP.Idempotency.Backend {
	case config.LockBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("Using redis idempotency store",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Duration("ttl", cfg.HTTP.Idempotency.TTL),
		)
		return NewRedisIdempotencyStore(client, ""), client.Close, nil
	case config.LockBackendMemory, "":
		logger.Info("Using in-memory idempotency store", zap.Duration("ttl", cfg.HTTP.Idempotency.TTL))
		store := NewInMemoryIdempotencyStore(memoryCleanupInterval)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown idempotency backend %q", cfg.HTTP.Idempotency.Backend)
	}
}
