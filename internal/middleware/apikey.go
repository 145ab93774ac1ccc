package middleware

import (
	"context"
	"strings"

	"fingate/internal/core"
	"fingate/internal/pkg/response"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator 以 bearer credential 換得 Principal
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (core.Principal, error)
}

type APIKey struct {
	logger        *zap.Logger
	trace         *telemetry.Trace
	authenticator Authenticator
}

func NewAPIKey(
	logger *zap.Logger,
	trace *telemetry.Trace,
	authenticator Authenticator,
) *APIKey {
	return &APIKey{
		logger:        logger,
		trace:         trace,
		authenticator: authenticator,
	}
}

// Handler 驗證 Authorization: Bearer <api_key>，成功後把 Principal 放入 context
func (middleware *APIKey) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanAPIKeyMiddleware))
		meta := core.TraceAPIKeyMiddlewareMeta{ClientIP: c.ClientIP()}

		credential, from := readBearer(c)
		meta.Where = from
		principal, err := middleware.authenticator.Authenticate(ctx, credential)
		if err != nil {
			meta.Status = "rejected"
			middleware.trace.ApplyTraceAttributes(span, meta)
			end(err)
			response.AbortWithError(c, err)
			return
		}

		meta.OwnerID = principal.OwnerID
		meta.APIKeyID = principal.KeyID
		meta.KeyName = principal.KeyName
		meta.Status = "success"
		middleware.trace.ApplyTraceAttributes(span, meta)
		middleware.logger.Debug("[APIKey Authenticated]",
			zap.String("ownerID", principal.OwnerID),
			zap.String("apiKeyID", principal.KeyID),
			zap.String("requestId", response.RequestID(c)),
		)
		end(nil)

		c.Set(core.ContextPrincipalKey, principal)
		c.Next()
	}
}

// readBearer 只接受 Authorization: Bearer；其他 scheme 視為未提供
func readBearer(c *gin.Context) (token string, from string) {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if auth == "" {
		return "", ""
	}
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):]), "bearer"
	}
	return "", "unsupported_scheme"
}

// PrincipalFrom 取得 APIKey middleware 放入的身分
func PrincipalFrom(c *gin.Context) (core.Principal, bool) {
	v, ok := c.Get(core.ContextPrincipalKey)
	if !ok {
		return core.Principal{}, false
	}
	principal, ok := v.(core.Principal)
	return principal, ok
}
