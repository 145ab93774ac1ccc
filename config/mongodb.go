package config

import "time"

// MongoDB 僅在 STORAGE_DRIVER=mongo 時使用
type MongoDB struct {
	URI      string `mapstructure:"URI" json:"uri" yaml:"uri"`
	Options  string `mapstructure:"OPTIONS" json:"options" yaml:"options"`
	Database string `mapstructure:"DATABASE" json:"database" yaml:"database"`
	// 連線池上限，0 表示使用 driver 預設
	MaxPoolSize      uint64 `mapstructure:"MAX_POOL_SIZE" json:"maxPoolSize" yaml:"maxPoolSize"`
	ConnectTimeoutMs int64  `mapstructure:"CONNECT_TIMEOUT_MS" json:"connectTimeoutMs" yaml:"connectTimeoutMs"`
}

func (m MongoDB) ConnectTimeout() time.Duration {
	if m.ConnectTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.ConnectTimeoutMs) * time.Millisecond
}
