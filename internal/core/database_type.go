package core

// ─── Database Types ────────────────────────────────────────────────────────────

type MongoDatabaseName string
type MongoCollection string
type RedisKey string
type FluentdSubTag string

// ─── MongoDB ───────────────────────────────────────────────────────────────────
const (
	MongoDBFingate MongoDatabaseName = "fingate"
)

// MongoDB collections
const (
	MongoCollectionAPIKeys           MongoCollection = "api_keys"
	MongoCollectionWebhooks          MongoCollection = "webhooks"
	MongoCollectionWebhookDeliveries MongoCollection = "webhook_deliveries"
	MongoCollectionUsageLogs         MongoCollection = "api_usage_logs"
)

// ─── Redis Keys ────────────────────────────────────────────────────────────────

const (
	RedisKeyServerName RedisKey = "fingate"    // 伺服器名稱
	RedisKeyRateLimit  RedisKey = "rate_limit" // 固定視窗計數
)

// ─── Fluentd ───────────────────────────────────────────────────────────────────

const (
	FluentdRequest       FluentdSubTag = "request_log"
	FluentdResponse      FluentdSubTag = "response_log"
	FluentdUsage         FluentdSubTag = "gateway_usage_log"
	FluentdDelivery      FluentdSubTag = "webhook_delivery_log"
	FluentdWebhookFailed FluentdSubTag = "webhook_failed"
)
