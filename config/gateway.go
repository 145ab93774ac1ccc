package config

import "time"

type Gateway struct {
	// 各路由對應的內部服務 base URL，key 為路由名稱（reports、analytics、tax...）
	Upstreams map[string]string `mapstructure:"UPSTREAMS" json:"upstreams" yaml:"upstreams"`
	// 呼叫內部服務的逾時（毫秒），預設 30000
	UpstreamTimeoutMs int64 `mapstructure:"UPSTREAM_TIMEOUT_MS" json:"upstreamTimeoutMs" yaml:"upstreamTimeoutMs"`
	// 轉發 body 的上限（bytes），預設 1MiB
	MaxBodyBytes int64 `mapstructure:"MAX_BODY_BYTES" json:"maxBodyBytes" yaml:"maxBodyBytes"`
	// 允許的 CORS 來源，空值表示全部
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS" json:"allowedOrigins" yaml:"allowedOrigins"`
}

func (g Gateway) Timeout() time.Duration {
	if g.UpstreamTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(g.UpstreamTimeoutMs) * time.Millisecond
}

func (g Gateway) BodyLimit() int64 {
	if g.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return g.MaxBodyBytes
}

func (g Gateway) Origins() []string {
	if len(g.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return g.AllowedOrigins
}
