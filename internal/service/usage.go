package service

import (
	"context"
	"sync"
	"time"

	"fingate/config"
	fluentdModel "fingate/internal/database/fluentd/model"
	fluentdRepository "fingate/internal/database/fluentd/repository"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"
	"fingate/internal/telemetry"

	"go.uber.org/zap"
)

// usageSinkTimeout 單筆寫入各 sink 的上限
const usageSinkTimeout = 5 * time.Second

// UsageLogger 非同步寫入用量紀錄；佇列滿時丟棄並告警，不阻塞回應
type UsageLogger struct {
	entries chan *model.UsageLog
	usage   store.UsageStore // nil 表示不落地
	logRepo *fluentdRepository.LogRepository
	metric  *telemetry.Metric
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewUsageLogger(
	conf *config.Configuration,
	usage store.UsageStore,
	logRepo *fluentdRepository.LogRepository,
	metric *telemetry.Metric,
	logger *zap.Logger,
) *UsageLogger {
	// memory driver 下沒有其他 sink 可查，一律保留在 store
	if !conf.Usage.StoreEnabled && !conf.Storage.UseMemory() {
		usage = nil
	}
	return &UsageLogger{
		entries: make(chan *model.UsageLog, conf.Usage.Buffer()),
		usage:   usage,
		logRepo: logRepo,
		metric:  metric,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Record 不阻塞；回傳 false 代表該筆被丟棄
func (l *UsageLogger) Record(entry *model.UsageLog) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop(entry, "usage logger closed")
		return false
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	select {
	case l.entries <- entry:
		return true
	default:
		l.drop(entry, "usage queue full")
		return false
	}
}

func (l *UsageLogger) drop(entry *model.UsageLog, reason string) {
	l.metric.IncUsageDropped()
	l.logger.Warn(reason,
		zap.String("requestID", entry.RequestID),
		zap.String("apiKeyID", entry.APIKeyID),
		zap.String("endpoint", entry.Endpoint),
		zap.Int("statusCode", entry.StatusCode),
	)
}

func (l *UsageLogger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

func (l *UsageLogger) run() {
	defer close(l.done)
	for entry := range l.entries {
		l.write(entry)
	}
}

// write sink 失敗只記錄，不回傳給呼叫端
func (l *UsageLogger) write(entry *model.UsageLog) {
	ctx, cancel := context.WithTimeout(context.Background(), usageSinkTimeout)
	defer cancel()

	if l.usage != nil {
		if err := l.usage.Append(ctx, entry); err != nil {
			l.logger.Error("append usage log failed", zap.String("requestID", entry.RequestID), zap.Error(err))
		}
	}
	if l.logRepo != nil {
		err := l.logRepo.LogUsage(ctx, fluentdModel.UsageLog{
			RequestID:       entry.RequestID,
			APIKeyID:        entry.APIKeyID,
			OwnerID:         entry.OwnerID,
			Endpoint:        entry.Endpoint,
			Method:          entry.Method,
			StatusCode:      entry.StatusCode,
			ErrorCode:       entry.ErrorCode,
			ResponseTimeMs:  entry.ResponseTimeMs,
			CreditsConsumed: entry.CreditsConsumed,
		})
		if err != nil {
			l.logger.Warn("ship usage log failed", zap.String("requestID", entry.RequestID), zap.Error(err))
		}
	}
}

// Close 停止收件並把佇列寫完；ctx 到期則放棄剩餘紀錄
func (l *UsageLogger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.entries)
	started := l.started
	l.mu.Unlock()

	if !started {
		// 沒有背景 goroutine，直接在這裡寫完
		for entry := range l.entries {
			l.write(entry)
		}
		return nil
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn("usage logger drain interrupted", zap.Int("remaining", len(l.entries)))
		return ctx.Err()
	}
}
