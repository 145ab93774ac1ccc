package config

type RateLimitStore string

const (
	RateLimitStoreMemory RateLimitStore = "memory"
	RateLimitStoreRedis  RateLimitStore = "redis"
)

type RateLimit struct {
	// memory：單一 process；redis：多 process 共用視窗
	Store RateLimitStore `mapstructure:"STORE" json:"store" yaml:"store"`
	// 固定視窗長度（秒），預設 60
	WindowSeconds int64 `mapstructure:"WINDOW_SECONDS" json:"windowSeconds" yaml:"windowSeconds"`
	// 建立 Key 時未指定的預設每分鐘上限
	DefaultLimit int `mapstructure:"DEFAULT_LIMIT" json:"defaultLimit" yaml:"defaultLimit"`
	// memory store 的視窗數量上限（僅回收已過期視窗），預設 100000
	MaxEntries int `mapstructure:"MAX_ENTRIES" json:"maxEntries" yaml:"maxEntries"`
	// memory store 清理過期視窗的 cron spec，預設每分鐘
	SweepSpec string `mapstructure:"SWEEP_SPEC" json:"sweepSpec" yaml:"sweepSpec"`
}

func (r RateLimit) Window() int64 {
	if r.WindowSeconds <= 0 {
		return 60
	}
	return r.WindowSeconds
}

func (r RateLimit) Limit() int {
	if r.DefaultLimit <= 0 {
		return 60
	}
	return r.DefaultLimit
}

func (r RateLimit) Entries() int {
	if r.MaxEntries <= 0 {
		return 100000
	}
	return r.MaxEntries
}

func (r RateLimit) Sweep() string {
	if r.SweepSpec == "" {
		return "@every 1m"
	}
	return r.SweepSpec
}
