package middleware

import (
	"net/http"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Cors struct {
	trace  *telemetry.Trace
	policy cors.Config
}

func NewCors(trace *telemetry.Trace, conf *config.Configuration) *Cors {
	return &Cors{trace: trace, policy: corsPolicy(conf.Gateway.Origins())}
}

// corsPolicy bearer token 走標頭，不開 credentials
func corsPolicy(origins []string) cors.Config {
	policy := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "Authorization", core.HeaderRequestID},
		ExposeHeaders: []string{
			core.HeaderRequestID,
			core.HeaderRateLimitLimit,
			core.HeaderRateLimitRemaining,
			core.HeaderRateLimitReset,
			core.HeaderRetryAfter,
		},
	}
	if len(origins) == 1 && origins[0] == "*" {
		policy.AllowAllOrigins = true
	} else {
		policy.AllowOrigins = origins
	}
	return policy
}

func (m *Cors) CorsHandler() gin.HandlerFunc {
	next := cors.New(m.policy)

	type corsMeta struct {
		AllowAll     bool     `trace:"http.cors.allow_all"`
		AllowOrigins []string `trace:"http.cors.allow_origins"`
		Preflight    bool     `trace:"http.cors.preflight"`
	}

	return func(c *gin.Context) {
		if !untraced(c.FullPath()) {
			_, span, end := m.trace.WithSpan(m.trace.GetTraceContext(c), string(core.SpanCorsMiddleware))
			m.trace.ApplyTraceAttributes(span, corsMeta{
				AllowAll:     m.policy.AllowAllOrigins,
				AllowOrigins: m.policy.AllowOrigins,
				Preflight:    c.Request.Method == http.MethodOptions,
			})
			end(nil)
		}
		next(c)
	}
}
