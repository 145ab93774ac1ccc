package middleware

import (
	"net/http"
	"time"

	"fingate/internal/core"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/pkg/response"
	"fingate/internal/service"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// Usage 每個閘道請求（含驗證失敗、限流拒絕、panic）都記一筆用量
type Usage struct {
	usageLogger *service.UsageLogger
	trace       *telemetry.Trace
	metric      *telemetry.Metric
}

func NewUsage(usageLogger *service.UsageLogger, trace *telemetry.Trace, metric *telemetry.Metric) *Usage {
	return &Usage{usageLogger: usageLogger, trace: trace, metric: metric}
}

func (middleware *Usage) Recorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := response.EnableMeta(c)
		start := response.RequestStart(c)

		defer func() {
			rec := recover()
			status := response.ResolveStatus(c)
			errorCode := ""
			if appErr := response.FirstError(c); appErr != nil {
				errorCode = appErr.Code()
			}
			if rec != nil {
				status, errorCode = http.StatusInternalServerError, "internal-server-error"
			}
			middleware.record(c, meta, start, status, errorCode)
			if rec != nil {
				// 交回 Recovery 輸出
				panic(rec)
			}
		}()
		c.Next()
	}
}

func (middleware *Usage) record(c *gin.Context, meta *response.Meta, start time.Time, status int, errorCode string) {
	_, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanUsageMiddleware))
	defer end(nil)

	entry := &model.UsageLog{
		RequestID:       response.RequestID(c),
		Endpoint:        c.Request.URL.Path,
		Method:          c.Request.Method,
		StatusCode:      status,
		ErrorCode:       errorCode,
		ResponseTimeMs:  time.Since(start).Milliseconds(),
		CreditsConsumed: meta.CreditsConsumed,
		Timestamp:       time.Now().UTC(),
	}
	if principal, ok := PrincipalFrom(c); ok {
		entry.APIKeyID = principal.KeyID
		entry.OwnerID = principal.OwnerID
	}
	route := "unknown"
	if v, ok := c.Get(core.ContextRouteKey); ok {
		if kind, ok := v.(core.RouteKind); ok {
			route = kind.String()
		}
	}
	middleware.metric.ObserveGatewayRequest(route, status, meta.CreditsConsumed)
	middleware.trace.ApplyTraceAttributes(span, core.TraceGatewayMeta{
		Route:      route,
		Method:     entry.Method,
		OwnerID:    entry.OwnerID,
		APIKeyID:   entry.APIKeyID,
		StatusCode: status,
		Credits:    entry.CreditsConsumed,
		LatencyMs:  entry.ResponseTimeMs,
	})
	// 非同步寫入，不影響回應
	middleware.usageLogger.Record(entry)
}
