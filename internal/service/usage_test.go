package service

import (
	"context"
	"sync"
	"testing"
	"time"

	fluentdRepository "fingate/internal/database/fluentd/repository"
	"fingate/internal/database/memory"
	"fingate/internal/database/mongodb/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFluentd struct {
	mu   sync.Mutex
	tags []string
}

func (r *recordingFluentd) Post(_ context.Context, tag string, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
	return nil
}

func (r *recordingFluentd) Close() error { return nil }

func (r *recordingFluentd) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tags)
}

func TestUsageLoggerDrainsOnClose(t *testing.T) {
	env := newTestEnv(t)
	env.conf.Usage.BufferSize = 64
	usage := memory.NewUsageStore()
	fluent := &recordingFluentd{}
	logger := NewUsageLogger(env.conf, usage, fluentdRepository.NewLogRepository(env.conf, fluent), env.metric, env.logger)
	logger.Start()

	for i := 0; i < 20; i++ {
		require.True(t, logger.Record(&model.UsageLog{RequestID: "r", Endpoint: "/chat", StatusCode: 200}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, logger.Close(ctx))

	assert.Len(t, usage.Entries(), 20)
	assert.Equal(t, 20, fluent.count())
	for _, e := range usage.Entries() {
		assert.False(t, e.Timestamp.IsZero())
	}

	// 關閉後的紀錄直接丟棄
	assert.False(t, logger.Record(&model.UsageLog{RequestID: "late"}))
	assert.NoError(t, logger.Close(ctx))
}

func TestUsageLoggerDropsWhenFull(t *testing.T) {
	env := newTestEnv(t)
	env.conf.Usage.BufferSize = 2
	usage := memory.NewUsageStore()
	logger := NewUsageLogger(env.conf, usage, nil, env.metric, env.logger)

	// 尚未 Start，佇列不會被消化
	assert.True(t, logger.Record(&model.UsageLog{RequestID: "1"}))
	assert.True(t, logger.Record(&model.UsageLog{RequestID: "2"}))
	assert.False(t, logger.Record(&model.UsageLog{RequestID: "3"}))

	require.NoError(t, logger.Close(context.Background()))
	assert.Len(t, usage.Entries(), 2)
}

func TestUsageLoggerSkipsStoreWhenDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.conf.Storage.Driver = "mongo"
	env.conf.Usage.StoreEnabled = false
	usage := memory.NewUsageStore()
	logger := NewUsageLogger(env.conf, usage, nil, env.metric, env.logger)
	logger.Start()

	assert.True(t, logger.Record(&model.UsageLog{RequestID: "1"}))
	require.NoError(t, logger.Close(context.Background()))
	assert.Empty(t, usage.Entries())
}
