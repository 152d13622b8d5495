package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyDocumentUploadUser = "eoffice:document:upload:user:%d"

// Limiter meters document writes per user.
type Limiter interface {
	AllowUpload(ctx context.Context, userID int64) (*Result, error)
}

// Unlimited allows every request.
type Unlimited struct{}

func (Unlimited) AllowUpload(context.Context, int64) (*Result, error) {
	return &Result{Allowed: true}, nil
}

type UploadLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewUploadLimiter draws from a redis token bucket keyed by user.
func NewUploadLimiter(client redis.Scripter, rate float64, burst int) (*UploadLimiter, error) {
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("upload rate limit must be positive")
	}
	bucket := NewTokenBucket(client)
	if bucket == nil {
		return nil, errors.New("upload rate limit redis client is required")
	}
	return &UploadLimiter{bucket: bucket, rate: rate, burst: burst}, nil
}

func (l *UploadLimiter) AllowUpload(ctx context.Context, userID int64) (*Result, error) {
	return l.bucket.Allow(ctx, fmt.Sprintf(keyDocumentUploadUser, userID), l.rate, l.burst)
}

// New returns a redis limiter when both redis and the upload limit are
// configured, and Unlimited otherwise.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Limiter, error) {
	if !cfg.Redis.Enabled || cfg.Redis.UploadRate <= 0 {
		return Unlimited{}, nil
	}

	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
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

	limiter, err := NewUploadLimiter(client, cfg.Redis.UploadRate, cfg.Redis.UploadBurst)
	if err != nil {
		return nil, err
	}
	log.Named("ratelimit").Info("document upload rate limit enabled",
		zap.Float64("rate", cfg.Redis.UploadRate),
		zap.Int("burst", cfg.Redis.UploadBurst),
	)
	return limiter, nil
}
