package middleware

import (
	"errors"
	"strconv"

	"fingate/internal/core"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/response"
	"fingate/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

type RateLimit struct {
	limiter *ratelimit.Limiter
}

func NewRateLimit(limiter *ratelimit.Limiter) *RateLimit {
	return &RateLimit{limiter: limiter}
}

// Guard 每個已驗證請求先計數再放行；超額或 store 無法使用都不會轉發
func (middleware *RateLimit) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.AbortWithError(c, cErr.MissingCredential("authorization bearer token is required"))
			return
		}

		decision, err := middleware.limiter.Allow(c.Request.Context(), principal)
		if err != nil && !errors.Is(err, cErr.RateLimitExceeded("")) {
			// store 無法使用：fail closed，不輸出額度標頭
			response.AbortWithError(c, err)
			return
		}

		// 寫入回應標頭，方便呼叫端與排錯
		resetIn := decision.ResetInSeconds()
		c.Header(core.HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		c.Header(core.HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
		c.Header(core.HeaderRateLimitReset, strconv.FormatInt(resetIn, 10))
		c.Set(core.ContextRateLimitKey, decision)

		remaining := decision.Remaining
		if meta := response.MetaFrom(c); meta != nil {
			meta.RateLimitRemaining = &remaining
		}

		if err != nil {
			c.Header(core.HeaderRetryAfter, strconv.FormatInt(resetIn, 10))
			if meta := response.MetaFrom(c); meta != nil {
				meta.ResetInSeconds = &resetIn
			}
			response.AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
