package core

const ContextTraceKey = "telemetry_trace_ctx"
const ContextRequestIDKey = "requestID"

// ==== 型別安全 span name ====
type TraceSpanName string

const (
	SpanHttpRequest         TraceSpanName = "http_request"
	SpanLoggerMiddleware    TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware  TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware      TraceSpanName = "cors_middleware"
	SpanResponseMiddleware  TraceSpanName = "response_middleware"
	SpanAPIKeyMiddleware    TraceSpanName = "api_key_middleware"
	SpanRateLimitMiddleware TraceSpanName = "ratelimit_middleware"
	SpanUsageMiddleware     TraceSpanName = "usage_middleware"
	SpanOwnerMiddleware     TraceSpanName = "owner_middleware"
	SpanGatewayDispatch     TraceSpanName = "gateway.dispatch"
	SpanUpstreamInvoke      TraceSpanName = "gateway.upstream"
	SpanDeliveryRun         TraceSpanName = "webhook.delivery.run"
	SpanDeliveryAttempt     TraceSpanName = "webhook.delivery.attempt"
)

// 指標名稱常數
type MetricName string

const (
	MetricHttpRequestsTotal     MetricName = "requests_total"
	MetricHttpRequestDuration   MetricName = "request_duration_seconds"
	MetricGatewayRequestsTotal  MetricName = "gateway_requests_total"
	MetricUpstreamDuration      MetricName = "gateway_upstream_duration_seconds"
	MetricCreditsConsumedTotal  MetricName = "gateway_credits_consumed_total"
	MetricAuthFailuresTotal     MetricName = "gateway_auth_failures_total"
	MetricRateLimitTotal        MetricName = "rate_limited_total"
	MetricUsageDroppedTotal     MetricName = "usage_dropped_total"
	MetricDeliveryAttemptsTotal MetricName = "webhook_delivery_attempts_total"
	MetricDeliveryDuration      MetricName = "webhook_delivery_duration_seconds"
	MetricDeliveryFailedTotal   MetricName = "webhook_delivery_failed_total"
)

// label name 常數
type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelReason   MetricLabelName = "reason"
	MetricLabelRoute    MetricLabelName = "route"
	MetricLabelOutcome  MetricLabelName = "outcome"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Body       string            `trace:"request.body"`
	Scheme     string            `trace:"http.scheme"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	Proto      string            `trace:"http.flavor"`
	ClientIP   string            `trace:"net.peer.ip"`
	Headers    map[string]string `trace:"http.request.header"`
	Params     map[string]string `trace:"http.request.param"`
}

type TracePanicMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	ClientIP   string  `trace:"net.peer.ip"`
	UserAgent  string  `trace:"http.user_agent"`
	DurationMs float64 `trace:"response.latency_ms"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"error.message"`
	Stack      string  `trace:"error.stack"`
}

type TraceErrorMeta struct {
	Code       string  `trace:"error.code"`
	Message    string  `trace:"error.message"`
	Status     int     `trace:"http.status_code"`
	DurationMs float64 `trace:"response.latency_ms"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"response.message"`
	DurationMs float64 `trace:"response.latency_ms"`
	Data       string  `trace:"response.data_preview"`
}

type TraceHttpServerMeta struct {
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	UrlPath           string `trace:"http.request.path"`
	UrlScheme         string `trace:"http.request.url.scheme"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	RequestID         string `trace:"http.request.request_id"`
	SpanTraceID       string `trace:"span.trace_id"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
}

type TraceAPIKeyMiddlewareMeta struct {
	Where    string `trace:"auth.where"`
	ClientIP string `trace:"net.peer.ip,omitempty"`
	OwnerID  string `trace:"auth.owner_id,omitempty"`
	APIKeyID string `trace:"auth.api_key_id,omitempty"`
	KeyName  string `trace:"auth.key_name,omitempty"`
	Status   string `trace:"auth.status,omitempty"`
}

// 供 Redis / memory 限流使用
type TraceRateLimitMeta struct {
	APIKeyID  string `trace:"rl.api_key_id"`
	Store     string `trace:"rl.store"`
	Limit     int    `trace:"rl.limit_count"`
	WindowSec int64  `trace:"rl.window_sec"`
	Allowed   bool   `trace:"rl.allowed"`
	Remaining int    `trace:"rl.remaining"`
	ResetInMs int64  `trace:"rl.reset_in_ms"`
}

type TraceGatewayMeta struct {
	Route      string `trace:"gateway.route"`
	Method     string `trace:"http.method"`
	OwnerID    string `trace:"gateway.owner_id"`
	APIKeyID   string `trace:"gateway.api_key_id"`
	Upstream   string `trace:"gateway.upstream_url"`
	StatusCode int    `trace:"gateway.upstream_status,omitempty"`
	Credits    int    `trace:"gateway.credits"`
	LatencyMs  int64  `trace:"gateway.latency_ms,omitempty"`
}

type TraceDeliveryMeta struct {
	DeliveryID string `trace:"webhook.delivery_id"`
	WebhookID  string `trace:"webhook.id"`
	EventType  string `trace:"webhook.event_type"`
	Attempt    int    `trace:"webhook.attempt"`
	StatusCode int    `trace:"webhook.response_status,omitempty"`
	Outcome    string `trace:"webhook.outcome"`
	LatencyMs  int64  `trace:"webhook.latency_ms,omitempty"`
}

type TraceDeliveryRunMeta struct {
	Claimed   int `trace:"webhook.run.claimed"`
	Delivered int `trace:"webhook.run.delivered"`
	Retrying  int `trace:"webhook.run.retrying"`
	Failed    int `trace:"webhook.run.failed"`
	Skipped   int `trace:"webhook.run.skipped"`
	Abandoned int `trace:"webhook.run.abandoned"`
}

type TraceOwnerMiddlewareMeta struct {
	OwnerID string `trace:"auth.owner_id,omitempty"`
	Status  string `trace:"auth.status,omitempty"`
}
