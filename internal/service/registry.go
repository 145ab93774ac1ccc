package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/telemetry"
)

// Invocation 交給內部服務的請求；Body 已移除呼叫端自帶的身分欄位
type Invocation struct {
	Route     core.RouteSpec
	Method    string
	Body      []byte
	Query     url.Values
	Header    http.Header
	Principal core.Principal
	RequestID string
}

type InvocationResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// InternalHandler 每個 RouteKind 對應一個實作
type InternalHandler interface {
	Invoke(ctx context.Context, invocation Invocation) (*InvocationResult, error)
}

// InternalHandlerFunc 讓一般函式滿足 InternalHandler（測試與內建路由用）
type InternalHandlerFunc func(ctx context.Context, invocation Invocation) (*InvocationResult, error)

func (f InternalHandlerFunc) Invoke(ctx context.Context, invocation Invocation) (*InvocationResult, error) {
	return f(ctx, invocation)
}

// Registry RouteKind -> InternalHandler；建立時即為每個 RouteKind 填入實作
type Registry struct {
	handlers map[core.RouteKind]InternalHandler
}

// ErrRouteNotConfigured 路由存在但沒有設定內部服務位址
type ErrRouteNotConfigured struct {
	Route string
}

func (e *ErrRouteNotConfigured) Error() string {
	return fmt.Sprintf("no upstream configured for route %q", e.Route)
}

func NewRegistry() *Registry {
	registry := &Registry{handlers: make(map[core.RouteKind]InternalHandler)}
	for _, kind := range core.AllRouteKinds() {
		kind := kind
		registry.handlers[kind] = InternalHandlerFunc(func(context.Context, Invocation) (*InvocationResult, error) {
			return nil, &ErrRouteNotConfigured{Route: kind.String()}
		})
	}
	return registry
}

// ProvideRegistryWithUpstreams 依 GATEWAY.UPSTREAMS 註冊 HTTP 內部服務
func ProvideRegistryWithUpstreams(conf *config.Configuration, trace *telemetry.Trace, client *http.Client) *Registry {
	registry := NewRegistry()
	for _, kind := range core.AllRouteKinds() {
		base, ok := conf.Gateway.Upstreams[kind.String()]
		if !ok || base == "" {
			continue
		}
		registry.Register(kind, NewUpstreamHandler(kind, base, client, trace))
	}
	return registry
}

func (r *Registry) Register(kind core.RouteKind, handler InternalHandler) {
	if !kind.Valid() {
		panic(fmt.Sprintf("register handler for invalid route kind %d", kind))
	}
	r.handlers[kind] = handler
}

func (r *Registry) Get(kind core.RouteKind) (InternalHandler, bool) {
	handler, ok := r.handlers[kind]
	return handler, ok
}
