package middleware

import (
	"errors"
	"strings"
	"time"

	"fingate/config"
	"fingate/internal/core"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/response"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Owner 管理端 API 以 HS256 JWT 辨識 owner；API key 不能用來管理 key 本身
type Owner struct {
	trace  *telemetry.Trace
	secret []byte
	issuer string
}

func NewOwner(trace *telemetry.Trace, config *config.Configuration) *Owner {
	return &Owner{trace: trace, secret: []byte(config.App.TokenSecret()), issuer: config.App.Name}
}

func (m *Owner) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanOwnerMiddleware))
		meta := core.TraceOwnerMiddlewareMeta{}

		token, _ := readBearer(c)
		if token == "" {
			meta.Status = "missing_token"
			m.trace.ApplyTraceAttributes(span, meta)
			cause := cErr.Unauthorized("owner token is required")
			end(cause)
			response.AbortWithError(c, cause)
			return
		}

		claims, err := m.parse(token)
		if err != nil {
			meta.Status = "invalid_token"
			m.trace.ApplyTraceAttributes(span, meta)
			cause := cErr.Unauthorized("owner token is invalid or expired")
			end(err)
			response.AbortWithError(c, cause)
			return
		}

		meta.OwnerID = claims.OwnerID
		meta.Status = "success"
		m.trace.ApplyTraceAttributes(span, meta)
		end(nil)
		c.Set(core.ContextOwnerKey, claims.OwnerID)
		c.Next()
	}
}

func (m *Owner) parse(token string) (*core.OwnerClaims, error) {
	claims := &core.OwnerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method " + t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || strings.TrimSpace(claims.OwnerID) == "" {
		return nil, errors.New("owner_id claim is required")
	}
	// jwt/v4 對缺少 exp 的 token 視為永不過期
	if claims.ExpiresAt == nil {
		return nil, errors.New("exp claim is required")
	}
	if m.issuer != "" && claims.Issuer != "" && claims.Issuer != m.issuer {
		return nil, errors.New("unexpected issuer")
	}
	return claims, nil
}

// Issue 簽發管理端 token（issue-token 指令與測試使用）
func (m *Owner) Issue(ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := core.OwnerClaims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// OwnerFrom 取得 Owner middleware 放入的 owner id
func OwnerFrom(c *gin.Context) string {
	return c.GetString(core.ContextOwnerKey)
}
