package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"go.uber.org/zap"
)

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
	assert.Equal(t, 20*time.Second, defaultBucketTTL(1, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 0, 1))
	assert.Equal(t, 2*time.Second, retryAfter(false, 0, 0.5))
	assert.Zero(t, retryAfter(false, 1, 0.5))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, int64(0), castToInt("x"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
	assert.Equal(t, 0.0, castToFloat("x"))
}

func TestNilBucketRejects(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	require.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestNewUploadLimiterValidates(t *testing.T) {
	_, err := NewUploadLimiter(nil, 0, 1)
	assert.Error(t, err)
	_, err = NewUploadLimiter(nil, 1, 1)
	assert.Error(t, err)
}

func TestNewFallsBackToUnlimited(t *testing.T) {
	limiter, err := New(nil, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, Unlimited{}, limiter)

	res, err := limiter.AllowUpload(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
