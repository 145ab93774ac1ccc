package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/database/client"
	"fingate/internal/database/fluentd/repository"
	"fingate/internal/database/memory"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/response"
	"fingate/internal/ratelimit"
	"fingate/internal/service"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	principal core.Principal
	calls     []string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, credential string) (core.Principal, error) {
	s.calls = append(s.calls, credential)
	switch credential {
	case "":
		return core.Principal{}, cErr.MissingCredential("missing")
	case "good":
		return s.principal, nil
	default:
		return core.Principal{}, cErr.InvalidCredential("invalid")
	}
}

type brokenStore struct{}

func (brokenStore) CheckAndIncrement(context.Context, string, int) (core.RateDecision, error) {
	return core.RateDecision{}, errors.New("connection refused")
}

type harness struct {
	conf   *config.Configuration
	trace  *telemetry.Trace
	metric *telemetry.Metric
	logger *zap.Logger
	repo   *repository.LogRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	conf := &config.Configuration{}
	conf.App.Name = "fingate"
	conf.App.SecretKey = "pepper"
	conf.Storage.Driver = config.StorageDriverMemory
	return &harness{
		conf:   conf,
		trace:  trace,
		metric: telemetry.NewMetric(nil),
		logger: zap.NewNop(),
		repo:   repository.NewLogRepository(conf, &client.NoopClient{}),
	}
}

// engine 掛上與正式環境相同的外層 middleware
func (h *harness) engine() *gin.Engine {
	r := gin.New()
	r.Use(NewTraceEntry(h.trace, h.metric, h.conf).Handler())
	r.Use(NewRecovery(h.logger, h.trace, h.conf, h.repo).ErrorHandler())
	r.Use(NewResponse(h.logger, h.trace, h.conf, h.repo).FormatHandler())
	return r
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, response.Response) {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body response.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestAPIKeyHandler(t *testing.T) {
	h := newHarness(t)
	auth := &stubAuthenticator{principal: core.Principal{KeyID: "k1", OwnerID: "o1"}}
	r := h.engine()
	r.GET("/v1/x", NewAPIKey(h.logger, h.trace, auth).Handler(), func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		require.True(t, ok)
		response.Success(c, principal.OwnerID)
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
		wantCred   string
	}{
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized, wantCode: "missing-credential", wantCred: ""},
		{name: "basic scheme is treated as missing", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized, wantCode: "missing-credential", wantCred: ""},
		{name: "invalid", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "invalid-credential", wantCred: "nope"},
		{name: "lowercase bearer", header: "bearer good", wantStatus: http.StatusOK, wantCred: "good"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth.calls = nil
			req := httptest.NewRequest(http.MethodGet, "/v1/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec, body := serve(r, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCode, body.Code)
			require.Len(t, auth.calls, 1)
			assert.Equal(t, tc.wantCred, auth.calls[0])
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, "o1", body.Data)
			}
		})
	}
}

func TestRateLimitGuardHeaders(t *testing.T) {
	h := newHarness(t)
	limiter := ratelimit.NewLimiter(h.conf, ratelimit.NewMemoryStore(time.Minute), h.logger, h.trace, h.metric)
	auth := &stubAuthenticator{principal: core.Principal{KeyID: "k1", OwnerID: "o1", RateLimitPerMinute: 1}}

	var handled int
	r := h.engine()
	r.POST("/v1/x",
		func(c *gin.Context) { response.EnableMeta(c); c.Next() },
		NewAPIKey(h.logger, h.trace, auth).Handler(),
		NewRateLimit(limiter).Guard(),
		func(c *gin.Context) { handled++; response.Success(c, "ok") },
	)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
		req.Header.Set("Authorization", "Bearer good")
		return req
	}

	rec, body := serve(r, newReq())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, body.Meta)
	require.NotNil(t, body.Meta.RateLimitRemaining)
	assert.Equal(t, 0, *body.Meta.RateLimitRemaining)

	rec, body = serve(r, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate-limit-exceeded", body.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, body.Meta)
	require.NotNil(t, body.Meta.ResetInSeconds)
	assert.Equal(t, 1, handled)
}

func TestRateLimitGuardFailsClosed(t *testing.T) {
	h := newHarness(t)
	limiter := ratelimit.NewLimiter(h.conf, brokenStore{}, h.logger, h.trace, h.metric)
	auth := &stubAuthenticator{principal: core.Principal{KeyID: "k1", OwnerID: "o1", RateLimitPerMinute: 100}}

	var handled bool
	r := h.engine()
	r.POST("/v1/x",
		NewAPIKey(h.logger, h.trace, auth).Handler(),
		NewRateLimit(limiter).Guard(),
		func(c *gin.Context) { handled = true; response.Success(c, "ok") },
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec, _ := serve(r, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.False(t, handled)
}

func TestOwnerHandler(t *testing.T) {
	h := newHarness(t)
	owner := NewOwner(h.trace, h.conf)
	r := h.engine()
	r.GET("/admin/me", owner.Handler(), func(c *gin.Context) {
		response.Success(c, OwnerFrom(c))
	})

	valid, err := owner.Issue("owner-9", time.Hour)
	require.NoError(t, err)
	expired, err := owner.Issue("owner-9", -time.Minute)
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, core.OwnerClaims{OwnerID: "owner-9"}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	noOwner, err := jwt.NewWithClaims(jwt.SigningMethodHS256, core.OwnerClaims{}).SignedString([]byte("pepper"))
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, core.OwnerClaims{OwnerID: "owner-9"}).SignedString([]byte("pepper"))
	require.NoError(t, err)

	cases := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "valid", token: valid, wantStatus: http.StatusOK},
		{name: "missing", token: "", wantStatus: http.StatusUnauthorized},
		{name: "expired", token: expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", token: foreign, wantStatus: http.StatusUnauthorized},
		{name: "no owner claim", token: noOwner, wantStatus: http.StatusUnauthorized},
		{name: "no expiry", token: noExpiry, wantStatus: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec, body := serve(r, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, "owner-9", body.Data)
				assert.Nil(t, body.Meta)
			}
		})
	}
}

func TestUsageRecordsPanics(t *testing.T) {
	h := newHarness(t)
	usage := memory.NewUsageStore()
	usageLogger := service.NewUsageLogger(h.conf, usage, h.repo, h.metric, h.logger)
	auth := &stubAuthenticator{principal: core.Principal{KeyID: "k1", OwnerID: "o1"}}

	r := h.engine()
	r.POST("/v1/x",
		NewUsage(usageLogger, h.trace, h.metric).Recorder(),
		NewAPIKey(h.logger, h.trace, auth).Handler(),
		func(c *gin.Context) { panic("boom") },
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec, body := serve(r, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.RequestID)

	require.NoError(t, usageLogger.Close(context.Background()))
	entries := usage.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusInternalServerError, entries[0].StatusCode)
	assert.Equal(t, "k1", entries[0].APIKeyID)
	assert.Equal(t, "o1", entries[0].OwnerID)
	assert.Equal(t, body.RequestID, entries[0].RequestID)
}

func TestTraceEntryRequestID(t *testing.T) {
	h := newHarness(t)
	r := h.engine()
	r.GET("/ping", func(c *gin.Context) { response.Success(c, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec, body := serve(r, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", body.RequestID)

	rec, body = serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body.RequestID)
}

func TestCorsPolicy(t *testing.T) {
	h := newHarness(t)
	h.conf.Gateway.AllowedOrigins = []string{"https://app.example.com"}
	r := h.engine()
	r.Use(NewCors(h.trace, h.conf).CorsHandler())
	r.GET("/ping", func(c *gin.Context) { response.Success(c, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
