// Package ratelimit 實作每把 API Key 的固定視窗限流。
//
// Store 負責「判斷 + 計數」的原子操作；MemoryStore 給單一 process，
// Redis 版本（database/redis/repository.RateLimiterRepository）給多 process 共用。
package ratelimit

import (
	"context"

	"fingate/internal/core"
)

// Store 對同一 keyID 的呼叫必須是原子的：允許次數不得超過視窗建立時的 limit
type Store interface {
	CheckAndIncrement(ctx context.Context, keyID string, limit int) (core.RateDecision, error)
}
