package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fingate/config"
	"fingate/internal/core"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/telemetry"

	"go.uber.org/zap"
)

// 呼叫端不得自帶的身分欄位（body 最上層與 query string）
var ownerFields = map[string]struct{}{
	"owner_id": {},
	"ownerId":  {},
	"user_id":  {},
	"userId":   {},
}

func isOwnerField(name string) bool {
	_, ok := ownerFields[name]
	return ok
}

type DispatchRequest struct {
	Path      string
	Method    string
	Body      []byte
	Query     url.Values
	Header    http.Header
	Principal core.Principal
	RequestID string
}

// DispatchResult Invoked 為 true 時即使失敗也要計入 credits
type DispatchResult struct {
	Route      core.RouteSpec
	Invoked    bool
	Credits    int
	StatusCode int
	Data       any
	LatencyMs  int64
}

type GatewayService struct {
	registry *Registry
	trace    *telemetry.Trace
	metric   *telemetry.Metric
	logger   *zap.Logger
	timeout  time.Duration
}

func NewGatewayService(
	conf *config.Configuration,
	registry *Registry,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	logger *zap.Logger,
) *GatewayService {
	return &GatewayService{
		registry: registry,
		trace:    trace,
		metric:   metric,
		logger:   logger,
		timeout:  conf.Gateway.Timeout(),
	}
}

// Resolve 公開路徑 -> RouteSpec；未知路徑回傳含有效路由清單的 404
func (s *GatewayService) Resolve(path string) (core.RouteSpec, error) {
	normalized := "/" + strings.Trim(path, "/")
	kind, ok := core.ResolveRoute(normalized)
	if !ok {
		return core.RouteSpec{}, cErr.RouteNotFound(normalized, core.ValidRoutePaths())
	}
	return kind.Spec(), nil
}

// Dispatch 解析路由、檢查必填欄位、移除自帶身分後同步呼叫內部服務。
// 呼叫端斷線不會取消內部呼叫；內部呼叫只受閘道自己的 timeout 限制。
func (s *GatewayService) Dispatch(ctx context.Context, req DispatchRequest) (result *DispatchResult, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx, string(core.SpanGatewayDispatch))
	defer func() { end(returnedError) }()

	route, err := s.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	result = &DispatchResult{Route: route}

	body, fields, err := sanitizeBody(req.Body)
	if err != nil {
		return result, err
	}
	query := stripOwnerQuery(req.Query)
	for _, field := range route.RequiredFields {
		if _, ok := fields[field]; ok {
			continue
		}
		if query.Get(field) != "" {
			continue
		}
		return result, cErr.MissingField("missing required field: " + field)
	}

	handler, ok := s.registry.Get(route.Kind)
	if !ok {
		// Registry 建立時已填滿所有 RouteKind
		return result, cErr.InternalServer("route has no handler")
	}

	invokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	started := time.Now()
	invocation := Invocation{
		Route:     route,
		Method:    req.Method,
		Body:      body,
		Query:     query,
		Header:    req.Header,
		Principal: req.Principal,
		RequestID: req.RequestID,
	}
	upstream, invokeErr := handler.Invoke(invokeCtx, invocation)
	elapsed := time.Since(started)
	result.Invoked = true
	result.Credits = route.Credits
	result.LatencyMs = elapsed.Milliseconds()

	meta := core.TraceGatewayMeta{
		Route:     route.Name,
		Method:    req.Method,
		OwnerID:   req.Principal.OwnerID,
		APIKeyID:  req.Principal.KeyID,
		Credits:   route.Credits,
		LatencyMs: result.LatencyMs,
	}
	defer func() { s.trace.ApplyTraceAttributes(span, meta) }()

	if invokeErr != nil {
		var notConfigured *ErrRouteNotConfigured
		switch {
		case errors.As(invokeErr, &notConfigured):
			// 沒有實際呼叫到內部服務，不收費
			result.Invoked = false
			result.Credits = 0
			s.metric.ObserveUpstream(route.Name, "unconfigured", elapsed)
			return result, cErr.ServiceUnavailable("route " + route.Name + " is not available")
		case errors.Is(invokeErr, context.DeadlineExceeded) || errors.Is(invokeCtx.Err(), context.DeadlineExceeded):
			s.metric.ObserveUpstream(route.Name, "timeout", elapsed)
			s.logger.Warn("internal handler timed out",
				zap.String("route", route.Name),
				zap.Duration("timeout", s.timeout),
			)
			return result, cErr.UpstreamTimeout("internal handler did not respond in time")
		default:
			s.metric.ObserveUpstream(route.Name, "error", elapsed)
			s.logger.Error("internal handler failed",
				zap.String("route", route.Name),
				zap.Error(invokeErr),
			)
			return result, cErr.InternalServer("internal handler failed")
		}
	}

	result.StatusCode = upstream.StatusCode
	meta.StatusCode = upstream.StatusCode
	data := decodeUpstreamBody(upstream)

	switch {
	case upstream.StatusCode >= 200 && upstream.StatusCode < 300:
		s.metric.ObserveUpstream(route.Name, "success", elapsed)
		result.Data = data
		return result, nil
	case upstream.StatusCode >= 400 && upstream.StatusCode < 500:
		s.metric.ObserveUpstream(route.Name, "rejected", elapsed)
		// 只回傳擷取出的說明文字，body 其餘欄位可能含內部資訊
		return result, cErr.UpstreamRejected(upstream.StatusCode, upstreamMessage(data))
	default:
		s.metric.ObserveUpstream(route.Name, "error", elapsed)
		// 5xx 的內容可能含內部細節，只記 log 不回給呼叫端
		s.logger.Error("internal handler returned error status",
			zap.String("route", route.Name),
			zap.Int("status", upstream.StatusCode),
			zap.ByteString("body", truncateBytes(upstream.Body, 512)),
		)
		return result, cErr.InternalServer("internal handler failed")
	}
}

// sanitizeBody 空 body 視為 {}；非 JSON object 回傳 400。回傳移除身分欄位後的 body 與欄位集合
func sanitizeBody(raw []byte) ([]byte, map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, cErr.BadRequestBody("request body must be a JSON object")
	}
	if fields == nil {
		// body 為 null
		fields = map[string]json.RawMessage{}
	}
	stripped := false
	for name := range fields {
		if isOwnerField(name) {
			delete(fields, name)
			stripped = true
		}
	}
	if !stripped {
		return raw, fields, nil
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, cErr.BadRequestBody("request body must be a JSON object")
	}
	return body, fields, nil
}

// decodeUpstreamBody JSON 回傳解碼後的值，其他內容回傳字串
func decodeUpstreamBody(result *InvocationResult) any {
	if len(bytes.TrimSpace(result.Body)) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(result.Body, &data); err == nil {
		return data
	}
	return string(result.Body)
}

// upstreamMessage 取內部服務 4xx 回應中的說明文字
func upstreamMessage(data any) string {
	if m, ok := data.(map[string]any); ok {
		for _, key := range []string{"error", "message", "detail"} {
			if s, ok := m[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := data.(string); ok && s != "" && len(s) <= 200 {
		return s
	}
	return "request rejected by internal handler"
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
