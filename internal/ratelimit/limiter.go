package ratelimit

import (
	"context"
	"time"

	"fingate/config"
	"fingate/internal/core"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Limiter 對 principal 套用限流；store 異常時一律拒絕（fail closed），避免上限失效
type Limiter struct {
	store     Store
	storeName string
	window    int64
	logger    *zap.Logger
	trace     *telemetry.Trace
	metric    *telemetry.Metric
}

func NewLimiter(conf *config.Configuration, store Store, logger *zap.Logger, trace *telemetry.Trace, metric *telemetry.Metric) *Limiter {
	storeName := string(conf.RateLimit.Store)
	if storeName == "" {
		storeName = string(config.RateLimitStoreMemory)
	}
	return &Limiter{
		store:     store,
		storeName: storeName,
		window:    conf.RateLimit.Window(),
		logger:    logger,
		trace:     trace,
		metric:    metric,
	}
}

// Allow 回傳限流結果；拒絕時 error 為 *cErr.Error（429 或 503）
func (l *Limiter) Allow(ctx context.Context, principal core.Principal) (decision core.RateDecision, returnedError error) {
	ctx, span, end := l.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	decision, err := l.store.CheckAndIncrement(ctx, principal.KeyID, principal.RateLimitPerMinute)
	if err != nil {
		l.logger.Error("rate limit store unavailable",
			zap.String("apiKeyID", principal.KeyID),
			zap.String("store", l.storeName),
			zap.Error(err),
		)
		return core.RateDecision{}, cErr.RateLimiterUnavailable("rate limiter temporarily unavailable")
	}

	l.trace.ApplyTraceAttributes(span, core.TraceRateLimitMeta{
		APIKeyID:  principal.KeyID,
		Store:     l.storeName,
		Limit:     decision.Limit,
		WindowSec: l.window,
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		ResetInMs: decision.ResetIn.Milliseconds(),
	})

	if !decision.Allowed {
		l.metric.IncRateLimited()
		return decision, cErr.RateLimitExceeded("rate limit exceeded for this API key")
	}
	return decision, nil
}

// Resetter 可丟棄單一 key 的視窗
type Resetter interface {
	Delete(ctx context.Context, keyID string) error
}

// Reset key 被刪除時清掉其視窗；store 不支援時為 noop
func (l *Limiter) Reset(ctx context.Context, keyID string) error {
	resetter, ok := l.store.(Resetter)
	if !ok {
		return nil
	}
	return resetter.Delete(ctx, keyID)
}

// Sweeper 只有 memory store 需要定期回收
type Sweeper interface {
	Sweep(now time.Time) int
}

// Sweep 給 cron 呼叫；非 memory store 時為 noop
func (l *Limiter) Sweep() int {
	sweeper, ok := l.store.(Sweeper)
	if !ok {
		return 0
	}
	removed := sweeper.Sweep(time.Now())
	if removed > 0 {
		l.logger.Debug("rate limit windows swept", zap.Int("removed", removed))
	}
	return removed
}

var ProviderSet = wire.NewSet(NewLimiter)
