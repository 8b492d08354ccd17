package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/stockcore/internal/application/alert"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SweepLockKey is the Redis key shared by every instance running sweeps
const SweepLockKey = "stockcore:lock:low_stock_sweep"

// RedisSweepLocker serialises low stock sweeps across instances with a
// single Redis lock. The TTL bounds how long a crashed holder blocks others.
type RedisSweepLocker struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSweepLocker creates a locker on client
func NewRedisSweepLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisSweepLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSweepLocker{
		locker: redislock.New(client),
		key:    SweepLockKey,
		ttl:    ttl,
		logger: logger,
	}
}

// Obtain takes the lock without retrying. A lock held elsewhere is reported
// as alert.ErrSweepInProgress.
func (l *RedisSweepLocker) Obtain(ctx context.Context) (func(), error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, alert.ErrSweepInProgress
	}
	if err != nil {
		return nil, err
	}

	return func() {
		// the sweep context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}, nil
}

var _ alert.SweepLocker = (*RedisSweepLocker)(nil)
