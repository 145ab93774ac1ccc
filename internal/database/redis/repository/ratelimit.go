package repository

import (
	"context"
	"fmt"
	"time"

	"fingate/config"
	"fingate/internal/core"
	client "fingate/internal/database/client"
	"fingate/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// checkAndIncrementScript 固定視窗：hash {count, limit}，視窗到期由 PEXPIRE 回收。
// limit 在視窗建立時寫入，視窗內調整上限要等下一個視窗才生效。
// 回傳 {allowed, remaining, limit, ttlMs}
var checkAndIncrementScript = redis.NewScript(`
local count = redis.call('HGET', KEYS[1], 'count')
if not count then
  redis.call('HSET', KEYS[1], 'count', 0, 'limit', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
local limit = tonumber(redis.call('HGET', KEYS[1], 'limit'))
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
local current = tonumber(redis.call('HGET', KEYS[1], 'count'))
if current < limit then
  current = redis.call('HINCRBY', KEYS[1], 'count', 1)
  return {1, limit - current, limit, ttl}
end
return {0, 0, limit, ttl}
`)

type RateLimiterRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
	window time.Duration
}

func NewRateLimiterRepository(conf *config.Configuration, trace *telemetry.Trace, client *client.RedisClient) *RateLimiterRepository {
	return &RateLimiterRepository{
		trace:  trace,
		client: client.Client(),
		window: time.Duration(conf.RateLimit.Window()) * time.Second,
	}
}

// CheckAndIncrement 以單一 Lua script 完成判斷與計數，多個 process 共用同一視窗
func (repository *RateLimiterRepository) CheckAndIncrement(
	contextValue context.Context,
	apiKeyID string,
	limitCount int,
) (decision core.RateDecision, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() {
		endSpan(returnedError)
	}()

	traceMetadata := core.TraceRateLimitMeta{
		APIKeyID:  apiKeyID,
		Store:     string(config.RateLimitStoreRedis),
		Limit:     limitCount,
		WindowSec: int64(repository.window / time.Second),
	}

	values, runError := checkAndIncrementScript.Run(
		contextValue,
		repository.client,
		[]string{repository.buildKey(apiKeyID)},
		limitCount,
		repository.window.Milliseconds(),
	).Int64Slice()
	if runError != nil {
		returnedError = runError
		return core.RateDecision{}, returnedError
	}
	if len(values) != 4 {
		returnedError = fmt.Errorf("unexpected rate limit script result: %v", values)
		return core.RateDecision{}, returnedError
	}

	decision = core.RateDecision{
		Allowed:   values[0] == 1,
		Remaining: int(values[1]),
		Limit:     int(values[2]),
		ResetIn:   time.Duration(values[3]) * time.Millisecond,
	}
	traceMetadata.Allowed, traceMetadata.Remaining, traceMetadata.ResetInMs = decision.Allowed, decision.Remaining, values[3]
	repository.trace.ApplyTraceAttributes(span, traceMetadata)
	return decision, nil
}

// Delete 刪除計數 key；API key 被刪除時由 Limiter.Reset 呼叫
func (repository *RateLimiterRepository) Delete(contextValue context.Context, apiKeyID string) (returnedError error) {
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	returnedError = repository.client.Del(contextValue, repository.buildKey(apiKeyID)).Err()
	return returnedError
}

// buildKey 建構 RateLimiter 用的 Redis key
func (repository *RateLimiterRepository) buildKey(apiKeyID string) string {
	return fmt.Sprintf("%s:%s:%s", core.RedisKeyServerName, core.RedisKeyRateLimit, apiKeyID)
}
