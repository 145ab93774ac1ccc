package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fingate/config"
	"fingate/internal/database"
	"fingate/internal/database/client"
	"fingate/internal/database/fluentd/repository"
	"fingate/internal/database/memory"
	"fingate/internal/database/store"
	"fingate/internal/handler"
	"fingate/internal/middleware"
	"fingate/internal/ratelimit"
	"fingate/internal/service"
	"fingate/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	Details   json.RawMessage `json:"details"`
	RequestID string          `json:"request_id"`
	Meta      *struct {
		ResponseTimeMs     int64  `json:"response_time_ms"`
		CreditsConsumed    int    `json:"credits_consumed"`
		RateLimitRemaining *int   `json:"rate_limit_remaining"`
		ResetInSeconds     *int64 `json:"reset_in_seconds"`
	} `json:"meta"`
}

type testServer struct {
	router http.Handler
	usage  *service.UsageLogger
	stores *store.Stores
	owner  *middleware.Owner
}

func newTestServer(t *testing.T, upstreams map[string]string) *testServer {
	t.Helper()

	conf := &config.Configuration{}
	conf.App.Env = "test"
	conf.App.Name = "fingate"
	conf.App.Version = "test"
	conf.App.SecretKey = "pepper"
	conf.Storage.Driver = config.StorageDriverMemory
	conf.Gateway.Upstreams = upstreams
	conf.Gateway.MaxBodyBytes = 1024

	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	metric := telemetry.NewMetric(nil)
	logger := zap.NewNop()
	stores := memory.NewStores()
	logRepo := repository.NewLogRepository(conf, &client.NoopClient{})

	touches := service.NewKeyTouchBatcher(stores.APIKeys, logger)
	limiter := ratelimit.NewLimiter(conf, ratelimit.NewMemoryStore(time.Minute), logger, trace, metric)
	apiKeyService := service.NewAPIKeyService(trace, metric, stores.APIKeys, touches, limiter, conf, logger)
	webhookService := service.NewWebhookService(trace, stores.Webhooks, stores.Deliveries, logger)
	eventService := service.NewEventService(trace, stores.Webhooks, stores.Deliveries, logger)
	httpClient := service.NewHTTPClient()
	gatewayService := service.NewGatewayService(conf, service.ProvideRegistryWithUpstreams(conf, trace, httpClient), trace, metric, logger)
	usageLogger := service.NewUsageLogger(conf, stores.Usage, logRepo, metric, logger)
	healthService := service.NewHealthService(&database.Connections{})
	owner := middleware.NewOwner(trace, conf)

	engine, err := NewRouter(
		conf,
		middleware.NewTraceEntry(trace, metric, conf),
		middleware.NewRecovery(logger, trace, conf, logRepo),
		middleware.NewCors(trace, conf),
		middleware.NewLogger(logger, trace, conf, logRepo),
		middleware.NewResponse(logger, trace, conf, logRepo),
		NewAdminRouter(
			handler.NewAPIKeyHandler(trace, apiKeyService),
			handler.NewWebhookHandler(trace, webhookService),
			handler.NewEventHandler(trace, eventService),
			owner,
		),
		NewGatewayRouter(
			handler.NewGatewayHandler(trace, gatewayService, conf),
			middleware.NewUsage(usageLogger, trace, metric),
			middleware.NewAPIKey(logger, trace, apiKeyService),
			middleware.NewRateLimit(limiter),
		),
		NewHealthRouter(handler.NewHealthHandler(healthService, conf)),
	)
	require.NoError(t, err)

	return &testServer{router: engine, usage: usageLogger, stores: stores, owner: owner}
}

func (s *testServer) do(t *testing.T, method, path, auth string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) ownerToken(t *testing.T, ownerID string) string {
	t.Helper()
	token, err := s.owner.Issue(ownerID, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) issueKey(t *testing.T, ownerID string, limit int) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/admin/api-keys", s.ownerToken(t, ownerID), map[string]any{
		"name":               "test",
		"rateLimitPerMinute": limit,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.Key)
	return created.Key
}

func reportsUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"report":"ok"}`))
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func TestGatewayRateLimitAndUsage(t *testing.T) {
	upstream := reportsUpstream(t)
	srv := newTestServer(t, map[string]string{"reports": upstream.URL})
	key := srv.issueKey(t, "owner-1", 2)

	body := map[string]any{"report_type": "pnl"}
	for i, wantRemaining := range []string{"1", "0"} {
		rec, env := srv.do(t, http.MethodPost, "/v1/reports", key, body)
		require.Equal(t, http.StatusOK, rec.Code, "request %d: %s", i, rec.Body.String())
		assert.True(t, env.Success)
		assert.JSONEq(t, `{"report":"ok"}`, string(env.Data))
		assert.Equal(t, wantRemaining, rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		require.NotNil(t, env.Meta)
		assert.Equal(t, 2, env.Meta.CreditsConsumed)
		assert.NotEmpty(t, env.RequestID)
	}

	rec, env := srv.do(t, http.MethodPost, "/v1/reports", key, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "rate-limit-exceeded", env.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Meta)
	assert.Equal(t, 0, env.Meta.CreditsConsumed)
	require.NotNil(t, env.Meta.ResetInSeconds)
	assert.GreaterOrEqual(t, *env.Meta.ResetInSeconds, int64(1))

	require.NoError(t, srv.usage.Close(context.Background()))
	count, err := srv.stores.Usage.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGatewayAuthFailuresAreLogged(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, env := srv.do(t, http.MethodPost, "/v1/reports", "", map[string]any{"report_type": "pnl"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing-credential", env.Code)

	rec, env = srv.do(t, http.MethodPost, "/v1/reports", "fg_live_not-a-real-key", map[string]any{"report_type": "pnl"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid-credential", env.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))

	require.NoError(t, srv.usage.Close(context.Background()))
	count, err := srv.stores.Usage.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGatewayUnknownRouteListsValidRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	key := srv.issueKey(t, "owner-1", 10)

	rec, env := srv.do(t, http.MethodPost, "/v1/payroll", key, map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route-not-found", env.Code)
	assert.Contains(t, string(env.Details), "/reports")
	require.NotNil(t, env.Meta)
	assert.Equal(t, 0, env.Meta.CreditsConsumed)
}

func TestGatewayBodyTooLarge(t *testing.T) {
	upstream := reportsUpstream(t)
	srv := newTestServer(t, map[string]string{"reports": upstream.URL})
	key := srv.issueKey(t, "owner-1", 10)

	big := `{"report_type":"pnl","pad":"` + string(bytes.Repeat([]byte("x"), 2048)) + `"}`
	rec, env := srv.do(t, http.MethodPost, "/v1/reports", key, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload-too-large", env.Code)
}

func TestAdminRequiresOwnerToken(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := srv.do(t, http.MethodGet, "/admin/api-keys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/admin/api-keys", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := srv.do(t, http.MethodGet, "/admin/api-keys", srv.ownerToken(t, "owner-1"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Nil(t, env.Meta)
}

func TestAdminKeysAreOwnerScoped(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.issueKey(t, "owner-1", 10)

	_, env := srv.do(t, http.MethodGet, "/admin/api-keys", srv.ownerToken(t, "owner-2"), nil)
	var keys []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &keys))
	assert.Empty(t, keys)

	_, env = srv.do(t, http.MethodGet, "/admin/api-keys", srv.ownerToken(t, "owner-1"), nil)
	require.NoError(t, json.Unmarshal(env.Data, &keys))
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "key")
}

func TestAdminWebhookValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.ownerToken(t, "owner-1")

	rec, env := srv.do(t, http.MethodPost, "/admin/webhooks", token, map[string]any{
		"url":    "ftp://example.com/hook",
		"events": []string{"report.generated"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, env = srv.do(t, http.MethodPost, "/admin/webhooks", token, map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"report.generated"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.Secret)

	rec, _ = srv.do(t, http.MethodGet, "/admin/webhooks/not-an-id", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(t, http.MethodPost, "/admin/events", token, map[string]any{
		"eventType": "report.generated",
		"payload":   map[string]any{"id": 1},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var emitted struct {
		DeliveryIDs []string `json:"deliveryIds"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &emitted))
	assert.Len(t, emitted.DeliveryIDs, 1)

	rec, _ = srv.do(t, http.MethodGet, "/admin/webhooks/"+created.ID+"/deliveries?limit=ten", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(t, http.MethodGet, "/admin/webhooks/"+created.ID+"/deliveries?limit=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var deliveries []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &deliveries))
	require.Len(t, deliveries, 1)
	assert.Equal(t, emitted.DeliveryIDs[0], deliveries[0].ID)
	assert.Equal(t, "pending", deliveries[0].Status)
}

func TestHealthAndNoRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := srv.do(t, http.MethodGet, "/health/liveness", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 尚未 SetReady
	rec, _ = srv.do(t, http.MethodGet, "/health/readiness", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env := srv.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
