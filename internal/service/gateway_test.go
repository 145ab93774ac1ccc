package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"fingate/internal/core"
	cErr "fingate/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPrincipal = core.Principal{KeyID: "key-1", OwnerID: "owner-1", RateLimitPerMinute: 10}

func newGatewayService(env *testEnv) *GatewayService {
	registry := ProvideRegistryWithUpstreams(env.conf, env.trace, NewHTTPClient())
	return NewGatewayService(env.conf, registry, env.trace, env.metric, env.logger)
}

type capturedRequest struct {
	header http.Header
	query  url.Values
	body   map[string]any
}

func TestDispatchInjectsOwnerAndStripsSpoofedIdentity(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		captured <- capturedRequest{header: r.Header.Clone(), query: r.URL.Query(), body: body}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[1,2]}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t)
	env.conf.Gateway.Upstreams = map[string]string{"transactions": upstream.URL}
	svc := newGatewayService(env)

	header := http.Header{}
	header.Set("Authorization", "Bearer secret")
	header.Set(core.HeaderOwnerID, "attacker")
	header.Set("X-Trace-Note", "keep")
	result, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path:      "transactions",
		Method:    http.MethodPost,
		Body:      []byte(`{"owner_id":"attacker","userId":"attacker","amount":10}`),
		Query:     url.Values{"user_id": {"attacker"}, "page": {"2"}},
		Header:    header,
		Principal: testPrincipal,
		RequestID: "req-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Invoked)
	assert.Equal(t, 1, result.Credits)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, map[string]any{"items": []any{float64(1), float64(2)}}, result.Data)

	got := <-captured
	assert.Equal(t, "owner-1", got.header.Get(core.HeaderOwnerID))
	assert.Equal(t, "key-1", got.header.Get(core.HeaderAPIKeyID))
	assert.Equal(t, "transactions", got.header.Get(core.HeaderRoute))
	assert.Equal(t, "req-1", got.header.Get("X-Request-ID"))
	assert.Equal(t, "keep", got.header.Get("X-Trace-Note"))
	assert.Empty(t, got.header.Get("Authorization"))
	assert.Equal(t, map[string]any{"amount": float64(10)}, got.body)
	assert.Equal(t, url.Values{"page": {"2"}}, got.query)
}

func TestDispatchUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	svc := newGatewayService(env)

	result, err := svc.Dispatch(context.Background(), DispatchRequest{Path: "/payroll", Method: http.MethodPost, Principal: testPrincipal})
	assert.Nil(t, result)
	appErr := cErr.From(err)
	assert.Equal(t, "route-not-found", appErr.Code())
	assert.Equal(t, http.StatusNotFound, appErr.HttpCode())
	assert.Equal(t, map[string]any{"valid_routes": core.ValidRoutePaths()}, appErr.Details())
}

func TestDispatchMissingRequiredField(t *testing.T) {
	env := newTestEnv(t)
	svc := newGatewayService(env)

	result, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path: "/reports", Method: http.MethodPost, Body: []byte(`{"owner_id":"x"}`), Principal: testPrincipal,
	})
	assert.Equal(t, "missing-field", cErr.From(err).Code())
	assert.False(t, result.Invoked)
	assert.Zero(t, result.Credits)
}

func TestDispatchRequiredFieldFromQuery(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "monthly", r.URL.Query().Get("report_type"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t)
	env.conf.Gateway.Upstreams = map[string]string{"reports": upstream.URL + "/"}
	svc := newGatewayService(env)

	result, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path: "/reports", Method: http.MethodGet, Query: url.Values{"report_type": {"monthly"}}, Principal: testPrincipal,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Credits)
}

func TestDispatchRejectsNonObjectBody(t *testing.T) {
	env := newTestEnv(t)
	svc := newGatewayService(env)

	_, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path: "/transactions", Method: http.MethodPost, Body: []byte(`[1,2,3]`), Principal: testPrincipal,
	})
	assert.Equal(t, "bad-request-body", cErr.From(err).Code())
}

func TestDispatchUnconfiguredRouteIsNotCharged(t *testing.T) {
	env := newTestEnv(t)
	svc := newGatewayService(env)

	result, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path: "/transactions", Method: http.MethodPost, Principal: testPrincipal,
	})
	assert.Equal(t, http.StatusServiceUnavailable, cErr.From(err).HttpCode())
	assert.False(t, result.Invoked)
	assert.Zero(t, result.Credits)
}

func TestDispatchUpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer upstream.Close()
	defer close(release)

	env := newTestEnv(t)
	env.conf.Gateway.Upstreams = map[string]string{"transactions": upstream.URL}
	env.conf.Gateway.UpstreamTimeoutMs = 50
	svc := newGatewayService(env)

	started := time.Now()
	result, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path: "/transactions", Method: http.MethodPost, Principal: testPrincipal,
	})
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, "upstream-timeout", cErr.From(err).Code())
	assert.Equal(t, http.StatusGatewayTimeout, cErr.From(err).HttpCode())
	assert.True(t, result.Invoked)
	assert.Equal(t, 1, result.Credits)
}

func TestDispatchSurvivesCallerCancellation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t)
	env.conf.Gateway.Upstreams = map[string]string{"transactions": upstream.URL}
	svc := newGatewayService(env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := svc.Dispatch(ctx, DispatchRequest{Path: "/transactions", Method: http.MethodPost, Principal: testPrincipal})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"done": true}, result.Data)
}

func TestDispatchUpstreamStatuses(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnprocessableEntity)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":"amount must be positive","trace":"internal"}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t)
	env.conf.Gateway.Upstreams = map[string]string{"transactions": upstream.URL}
	svc := newGatewayService(env)
	req := DispatchRequest{Path: "/transactions", Method: http.MethodPost, Principal: testPrincipal}

	result, err := svc.Dispatch(context.Background(), req)
	appErr := cErr.From(err)
	assert.Equal(t, "upstream-rejected", appErr.Code())
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HttpCode())
	assert.Equal(t, "amount must be positive", appErr.ErrorDesc())
	assert.Nil(t, appErr.Details())
	assert.Equal(t, 1, result.Credits)

	status.Store(http.StatusInternalServerError)
	result, err = svc.Dispatch(context.Background(), req)
	appErr = cErr.From(err)
	assert.Equal(t, "internal-server-error", appErr.Code())
	assert.Equal(t, http.StatusInternalServerError, appErr.HttpCode())
	assert.Equal(t, "internal handler failed", appErr.ErrorDesc())
	assert.Nil(t, appErr.Details())
	assert.Equal(t, 1, result.Credits)
}

func TestDispatchHandlerErrorIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	registry := NewRegistry()
	registry.Register(core.RouteTransactions, InternalHandlerFunc(func(context.Context, Invocation) (*InvocationResult, error) {
		return nil, errors.New("ledger dial tcp 10.0.0.7:5432: password authentication failed")
	}))
	svc := NewGatewayService(env.conf, registry, env.trace, env.metric, env.logger)

	result, err := svc.Dispatch(context.Background(), DispatchRequest{
		Path: "/transactions", Method: http.MethodPost, Principal: testPrincipal,
	})
	appErr := cErr.From(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.HttpCode())
	assert.Equal(t, "internal-server-error", appErr.Code())
	assert.NotContains(t, appErr.ErrorDesc(), "10.0.0.7")
	assert.True(t, result.Invoked)
}

func TestRegistryCoversEveryRoute(t *testing.T) {
	registry := NewRegistry()
	for _, kind := range core.AllRouteKinds() {
		handler, ok := registry.Get(kind)
		require.True(t, ok, kind.String())
		_, err := handler.Invoke(context.Background(), Invocation{})
		var notConfigured *ErrRouteNotConfigured
		assert.ErrorAs(t, err, &notConfigured)
	}
	assert.Panics(t, func() { registry.Register(core.RouteUnknown, nil) })
}
