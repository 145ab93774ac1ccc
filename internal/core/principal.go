package core

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Principal 是通過 API Key 驗證後的呼叫者身分
type Principal struct {
	KeyID              string
	OwnerID            string
	KeyName            string
	RateLimitPerMinute int
}

// OwnerClaims 管理端 JWT 的 payload，owner_id 必填
type OwnerClaims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// RateDecision 是限流判斷結果
type RateDecision struct {
	Allowed   bool
	Remaining int
	Limit     int
	// 距離目前視窗結束的時間
	ResetIn time.Duration
}

// ResetInSeconds 無條件進位，至少 1 秒
func (d RateDecision) ResetInSeconds() int64 {
	secs := int64(d.ResetIn / time.Second)
	if d.ResetIn%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

// gin.Context keys
const (
	ContextPrincipalKey   = "principal"
	ContextRateLimitKey   = "rateDecision"
	ContextRouteKey       = "routeKind"
	ContextCreditsKey     = "creditsConsumed"
	ContextMetaKey        = "responseMeta"
	ContextOwnerKey       = "ownerID"
	ContextRequestTimeKey = "requestDuration"
)

// 轉發給內部服務的身分標頭（由閘道注入，不信任呼叫端）
const (
	HeaderOwnerID  = "X-Owner-ID"
	HeaderAPIKeyID = "X-Api-Key-ID"
	HeaderRoute    = "X-Gateway-Route"
)

// 回給呼叫端的標頭
const (
	// 呼叫端可自帶 request id；沒有就由閘道產生
	HeaderRequestID          = "X-Request-ID"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)
