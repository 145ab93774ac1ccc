package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fingate/config"
	client "fingate/internal/database/client"
	"fingate/internal/telemetry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) (*RateLimiterRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	conf := &config.Configuration{RateLimit: config.RateLimit{WindowSeconds: 60}}
	return NewRateLimiterRepository(conf, trace, client.WrapRedisClient(zap.NewNop(), rdb)), server
}

func TestCheckAndIncrementCountsDown(t *testing.T) {
	repository, _ := newTestRepository(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		decision, err := repository.CheckAndIncrement(ctx, "key-1", 3)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 3-i, decision.Remaining)
		assert.Equal(t, 3, decision.Limit)
		assert.Greater(t, decision.ResetIn, time.Duration(0))
	}

	decision, err := repository.CheckAndIncrement(ctx, "key-1", 3)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)

	// 其他 key 不受影響
	other, err := repository.CheckAndIncrement(ctx, "key-2", 3)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestCheckAndIncrementWindowExpires(t *testing.T) {
	repository, server := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repository.CheckAndIncrement(ctx, "key-1", 2)
		require.NoError(t, err)
	}
	denied, err := repository.CheckAndIncrement(ctx, "key-1", 2)
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	server.FastForward(61 * time.Second)

	decision, err := repository.CheckAndIncrement(ctx, "key-1", 2)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
}

func TestCheckAndIncrementLimitFixedPerWindow(t *testing.T) {
	repository, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repository.CheckAndIncrement(ctx, "key-1", 1)
	require.NoError(t, err)

	// 視窗內提高上限不影響目前視窗
	decision, err := repository.CheckAndIncrement(ctx, "key-1", 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.Limit)
}

func TestCheckAndIncrementZeroLimitDenies(t *testing.T) {
	repository, _ := newTestRepository(t)

	decision, err := repository.CheckAndIncrement(context.Background(), "key-1", 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestCheckAndIncrementConcurrentCeiling(t *testing.T) {
	repository, _ := newTestRepository(t)
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := repository.CheckAndIncrement(ctx, "key-1", 10)
			if err == nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), allowed.Load())
}

func TestCheckAndIncrementStoreDown(t *testing.T) {
	repository, server := newTestRepository(t)
	server.Close()

	_, err := repository.CheckAndIncrement(context.Background(), "key-1", 5)
	assert.Error(t, err)
}

func TestDeleteDropsWindow(t *testing.T) {
	repository, server := newTestRepository(t)
	ctx := context.Background()

	_, err := repository.CheckAndIncrement(ctx, "key-1", 1)
	require.NoError(t, err)
	require.True(t, server.Exists(repository.buildKey("key-1")))

	require.NoError(t, repository.Delete(ctx, "key-1"))
	assert.False(t, server.Exists(repository.buildKey("key-1")))

	decision, err := repository.CheckAndIncrement(ctx, "key-1", 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
