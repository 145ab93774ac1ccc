package middleware

import (
	"net"
	"strconv"
	"strings"
	"time"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/pkg/response"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// untraced 不做 tracing / log / 信封包裝的路徑
func untraced(endpoint string) bool {
	return strings.HasPrefix(endpoint, "/swagger") ||
		strings.HasPrefix(endpoint, "/metrics") ||
		strings.HasPrefix(endpoint, "/version") ||
		strings.HasPrefix(endpoint, "/health-check") ||
		strings.HasPrefix(endpoint, "/debug/pprof")
}

type TraceEntry struct {
	trace  *telemetry.Trace
	metric *telemetry.Metric
	conf   *config.Configuration
}

func NewTraceEntry(trace *telemetry.Trace, metric *telemetry.Metric, conf *config.Configuration) *TraceEntry {
	return &TraceEntry{trace: trace, metric: metric, conf: conf}
}

// Handler 最外層：request id、上游 trace context、server span 與請求量指標
func (m *TraceEntry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(core.ContextRequestTimeKey, start)
		if id := strings.TrimSpace(c.GetHeader(core.HeaderRequestID)); id != "" && len(id) <= 128 {
			c.Set(core.ContextRequestIDKey, id)
		}
		requestID := response.RequestID(c)
		c.Header(core.HeaderRequestID, requestID)

		route := c.FullPath()
		if untraced(route) {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := m.trace.StartSpanForLayer(ctx, core.TraceSpanName(serverSpanName(c.Request.Method, route)), trace.WithSpanKind(trace.SpanKindServer))
		c.Request = c.Request.WithContext(ctx)
		c.Set(core.ContextTraceKey, ctx)

		peerAddr, peerPort := peerOf(c)
		meta := core.TraceHttpServerMeta{
			ClientAddr:        c.ClientIP(),
			HttpRequestMethod: c.Request.Method,
			HttpRoute:         route,
			UrlPath:           c.Request.URL.Path,
			UrlScheme:         schemeOf(c),
			UserAgent:         c.Request.UserAgent(),
			ServerAddress:     m.conf.App.Name,
			NetworkPeerAddr:   peerAddr,
			NetworkPeerPort:   peerPort,
			NetworkProtoVer:   c.Request.Proto,
			RequestID:         requestID,
			SpanTraceID:       span.SpanContext().TraceID().String(),
		}

		c.Next()

		meta.HttpStatusCode = response.ResolveStatus(c)
		m.trace.ApplyTraceAttributes(span, &meta)
		if principal, ok := PrincipalFrom(c); ok {
			m.trace.ApplyTraceAttributes(span, core.TraceAPIKeyMiddlewareMeta{
				Where:    "bearer",
				OwnerID:  principal.OwnerID,
				APIKeyID: principal.KeyID,
				KeyName:  principal.KeyName,
				Status:   "authenticated",
			})
		}

		if route == "" {
			route = "unmatched"
		}
		m.metric.ObserveHttpRequest(route, meta.HttpStatusCode, time.Since(start))
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		m.trace.EndSpan(span, err)
	}
}

// serverSpanName 以路由樣板命名，避免 /v1/*route 的實際路徑造成高基數
func serverSpanName(method, route string) string {
	if route == "" {
		return method + " unmatched"
	}
	return method + " " + route
}

func peerOf(c *gin.Context) (string, int) {
	host, port, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.ClientIP(), 0
	}
	p, _ := strconv.Atoi(port)
	return host, p
}

func schemeOf(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
