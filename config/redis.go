package config

import "time"

// Redis 只在 RATE_LIMIT.STORE=redis 時連線
type Redis struct {
	Host     string `mapstructure:"HOST" json:"host" yaml:"host"`
	Port     int    `mapstructure:"PORT" json:"port" yaml:"port"`
	Password string `mapstructure:"PASSWORD" json:"password" yaml:"password"`
	DB       int    `mapstructure:"DB" json:"db" yaml:"db"`
	// 每個閘道請求都會打一次 Redis，pool 需跟得上併發
	PoolSize      int   `mapstructure:"POOL_SIZE" json:"poolSize" yaml:"poolSize"`
	DialTimeoutMs int64 `mapstructure:"DIAL_TIMEOUT_MS" json:"dialTimeoutMs" yaml:"dialTimeoutMs"`
}

func (r Redis) DialTimeout() time.Duration {
	if r.DialTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.DialTimeoutMs) * time.Millisecond
}
