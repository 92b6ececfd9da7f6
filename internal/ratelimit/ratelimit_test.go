package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledComponentsAreNil(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	assert.Nil(t, NewTokenBucket(nil))
	assert.Nil(t, NewLoginLimiter(config.Config{}, nil))

	var locker *Locker
	assert.False(t, locker.Enabled())
	_, ok, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, locker.Release(context.Background(), "k", "token"))
}

func TestNilLoginLimiterAllows(t *testing.T) {
	var limiter *LoginLimiter
	res, err := limiter.Allow(context.Background(), "10.0.0.1", "a@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLoginKeyNormalizesEmail(t *testing.T) {
	assert.Equal(t, "auth:login:10.0.0.1:a@example.com", LoginKey(" 10.0.0.1 ", " A@Example.com "))
}

func TestBuildResult(t *testing.T) {
	allowed := buildResult(true, 3.6, 0.5, 5)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Equal(t, 5, allowed.Limit)
	assert.Zero(t, allowed.RetryAfter)

	denied := buildResult(false, 0.5, 0.5, 5)
	assert.False(t, denied.Allowed)
	assert.Equal(t, time.Second, denied.RetryAfter)
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(7), castToInt("7"))
	assert.InDelta(t, 2.25, castToFloat("2.25"), 0.0001)
	assert.InDelta(t, 4.0, castToFloat(int64(4)), 0.0001)
	assert.Zero(t, castToFloat(nil))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 50*time.Second, defaultBucketTTL(0.2, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
}
