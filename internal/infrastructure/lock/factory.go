package lock

import (
	"context"
	"fmt"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/banper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// New builds the allocation locker selected by the ledger configuration.
// The returned close function releases the redis connection, if any.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (appfunding.AllocationLocker, func() error, error) {
	switch cfg.Ledger.LockBackend {
	case config.LockBackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis allocation locks",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Duration("ttl", cfg.Ledger.LockTTL),
			zap.Duration("wait", cfg.Ledger.LockWait),
		)
		return NewRedisLocker(client, cfg.Ledger.LockTTL, cfg.Ledger.LockWait, logger), client.Close, nil
	case config.LockBackendMemory, "":
		logger.Info("Using in-process allocation locks", zap.Duration("wait", cfg.Ledger.LockWait))
		return NewInProcessLocker(cfg.Ledger.LockWait), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Ledger.LockBackend)
	}
}

var (
	_ appfunding.AllocationLocker = (*InProcessLocker)(nil)
	_ appfunding.AllocationLocker = (*RedisLocker)(nil)
)
