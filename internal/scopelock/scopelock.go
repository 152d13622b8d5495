// Package scopelock serializes stock opname creation per scope across instances.
package scopelock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyOpnameScope = "eoffice:stock_opname:scope:%d"

var ErrScopeBusy = errors.New("scope_busy")

var Module = fx.Module("scopelock",
	fx.Provide(New),
)

// Locker holds an exclusive lease on a scope while a create runs.
type Locker interface {
	Acquire(ctx context.Context, scopeKey int64) (release func(context.Context), err error)
}

// Key returns the redis key guarding scopeKey; 0 is the main warehouse.
func Key(scopeKey int64) string {
	return fmt.Sprintf(keyOpnameScope, scopeKey)
}

// New returns a redis backed locker when enabled and a no-op locker otherwise.
// The database guard still applies without redis.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Locker, error) {
	if !cfg.Redis.Enabled {
		return Noop{}, nil
	}

	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil, errors.New("scope lock redis addr is required")
	}
	ttl := time.Duration(cfg.Redis.LockTTLSec) * time.Second
	if ttl <= 0 {
		return nil, errors.New("scope lock ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
	}

	log.Named("scopelock").Info("redis scope lock enabled", zap.String("addr", addr))
	return NewRedisLocker(client, ttl, log), nil
}

type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client redislock.RedisClient, ttl time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		log:    log.Named("scopelock"),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, scopeKey int64) (func(context.Context), error) {
	lock, err := l.locker.Obtain(ctx, Key(scopeKey), l.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrScopeBusy
		}
		return nil, fmt.Errorf("obtain scope lock: %w", err)
	}
	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn("failed to release scope lock", zap.Int64("scope_key", scopeKey), zap.Error(err))
		}
	}, nil
}

// Noop grants every lease immediately.
type Noop struct{}

func (Noop) Acquire(context.Context, int64) (func(context.Context), error) {
	return func(context.Context) {}, nil
}
