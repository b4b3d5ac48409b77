package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/guest"
	"github.com/xenking/freshcart/internal/storage/memory"
	"github.com/xenking/freshcart/internal/storage/postgres"
	"github.com/xenking/freshcart/internal/storage/redis"
)

// GuestStore is a guest storage backend that can also list and prune
// sessions.
type GuestStore interface {
	guest.Store
	guest.Pruner
}

// OpenGuestStore connects the configured guest backend. The returned close
// function releases its connections.
func OpenGuestStore(ctx context.Context, cfg GuestConfig) (GuestStore, func(), error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), func() {}, nil

	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewGuestStore(pool), pool.Close, nil

	case BackendRedis:
		rdb, err := redis.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect redis")
		}
		return redis.New(rdb, cfg.TTL), func() { _ = rdb.Close() }, nil

	default:
		return nil, nil, errors.Errorf("unknown guest backend %q", cfg.Backend)
	}
}

// pruneGuests periodically removes guest sessions idle longer than ttl.
func pruneGuests(ctx context.Context, p guest.Pruner, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	interval := min(ttl/2, time.Hour)
	lg := zctx.From(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := p.Prune(ctx, now.Add(-ttl))
			if err != nil {
				if ctx.Err() == nil {
					lg.Warn("Prune guest sessions failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				lg.Info("Pruned guest sessions", zap.Int("count", n))
			}
		}
	}
}
