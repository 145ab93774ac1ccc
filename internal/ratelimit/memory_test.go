package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStoreLimitPlusFive(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	allowed, denied := 0, 0
	for i := 0; i < 15; i++ {
		decision, err := store.CheckAndIncrement(ctx, "key-1", 10)
		require.NoError(t, err)
		if decision.Allowed {
			allowed++
		} else {
			denied++
			assert.Equal(t, 0, decision.Remaining)
		}
	}
	assert.Equal(t, 10, allowed)
	assert.Equal(t, 5, denied)
}

func TestMemoryStoreRemainingCountsDown(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	first, _ := store.CheckAndIncrement(ctx, "key-1", 2)
	second, _ := store.CheckAndIncrement(ctx, "key-1", 2)
	third, _ := store.CheckAndIncrement(ctx, "key-1", 2)

	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, 0, second.Remaining)
	assert.False(t, third.Allowed)
	assert.Greater(t, third.ResetInSeconds(), int64(0))
}

func TestMemoryStoreConcurrentSameKey(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := store.CheckAndIncrement(ctx, "hot-key", 25)
			if err == nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(25), allowed.Load())
}

func TestMemoryStoreWindowReset(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = store.CheckAndIncrement(ctx, "key-1", 3)
	}
	denied, _ := store.CheckAndIncrement(ctx, "key-1", 3)
	require.False(t, denied.Allowed)

	clock.Advance(59 * time.Second)
	still, _ := store.CheckAndIncrement(ctx, "key-1", 3)
	assert.False(t, still.Allowed)
	assert.Equal(t, time.Second, still.ResetIn)

	clock.Advance(time.Second)
	decision, _ := store.CheckAndIncrement(ctx, "key-1", 3)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Remaining)
}

func TestMemoryStoreLimitCopiedAtWindowStart(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = store.CheckAndIncrement(ctx, "key-1", 1)
	decision, _ := store.CheckAndIncrement(ctx, "key-1", 100)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.Limit)

	clock.Advance(time.Minute)
	decision, _ = store.CheckAndIncrement(ctx, "key-1", 100)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 99, decision.Remaining)
}

func TestMemoryStoreZeroLimit(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	decision, err := store.CheckAndIncrement(context.Background(), "key-1", 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestMemoryStoreSweepKeepsActiveWindows(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = store.CheckAndIncrement(ctx, "old", 5)
	clock.Advance(30 * time.Second)
	_, _ = store.CheckAndIncrement(ctx, "fresh", 1)
	clock.Advance(31 * time.Second)

	removed := store.Sweep(clock.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	// fresh 的視窗沒有被回收，上限仍然有效
	decision, _ := store.CheckAndIncrement(ctx, "fresh", 1)
	assert.False(t, decision.Allowed)
}

func TestMemoryStoreMaxEntriesEvictsOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithClock(clock.Now), WithMaxEntries(2))
	ctx := context.Background()

	_, _ = store.CheckAndIncrement(ctx, "a", 1)
	_, _ = store.CheckAndIncrement(ctx, "b", 1)
	// 兩個視窗都還在使用中：新 key 仍然放行，舊視窗不被回收
	_, _ = store.CheckAndIncrement(ctx, "c", 1)
	assert.Equal(t, 3, store.Len())
	decision, _ := store.CheckAndIncrement(ctx, "a", 1)
	assert.False(t, decision.Allowed)

	clock.Advance(2 * time.Minute)
	_, _ = store.CheckAndIncrement(ctx, "d", 1)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreCeilingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := newFakeClock()
		store := NewMemoryStore(time.Minute, WithClock(clock.Now))
		ctx := context.Background()

		limit := rapid.IntRange(0, 20).Draw(t, "limit")
		keys := rapid.IntRange(1, 3).Draw(t, "keys")
		steps := rapid.SliceOfN(rapid.IntRange(0, 5000), 1, 200).Draw(t, "stepsMs")

		// 每個 key 在每個視窗內的放行次數
		type windowKey struct {
			key   string
			start time.Time
		}
		starts := map[string]time.Time{}
		allowed := map[windowKey]int{}
		for i, step := range steps {
			clock.Advance(time.Duration(step) * time.Millisecond)
			key := fmt.Sprintf("key-%d", i%keys)
			decision, err := store.CheckAndIncrement(ctx, key, limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			now := clock.Now()
			start, ok := starts[key]
			if !ok || now.Sub(start) >= time.Minute {
				start = now
				starts[key] = start
			}
			if decision.Allowed {
				allowed[windowKey{key, start}]++
			}
			if decision.Remaining < 0 || decision.Remaining > limit {
				t.Fatalf("remaining out of range: %d", decision.Remaining)
			}
		}
		for wk, n := range allowed {
			if n > limit {
				t.Fatalf("window %v allowed %d > limit %d", wk, n, limit)
			}
		}
	})
}

func TestMemoryStoreDeleteStartsFreshWindow(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := store.CheckAndIncrement(ctx, "k", 2)
		require.NoError(t, err)
	}
	decision, err := store.CheckAndIncrement(ctx, "k", 2)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "missing"))
	assert.Zero(t, store.Len())

	decision, err = store.CheckAndIncrement(ctx, "k", 2)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
}
