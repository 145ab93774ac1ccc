package config

// Fluentd 用量、請求與投遞紀錄的外送目的地
type Fluentd struct {
	Enabled   bool   `mapstructure:"ENABLED" json:"enabled" yaml:"enabled"`
	Host      string `mapstructure:"HOST" json:"host" yaml:"host"`
	Port      int    `mapstructure:"PORT" json:"port" yaml:"port"`
	TagPrefix string `mapstructure:"TAG_PREFIX" json:"tagPrefix" yaml:"tagPrefix"`
	// 毫秒
	Timeout int64 `mapstructure:"TIMEOUT" json:"timeout" yaml:"timeout"`
	// async 模式下暫存的 bytes 上限，超過即丟棄
	BufferLimit int `mapstructure:"BUFFER_LIMIT" json:"bufferLimit" yaml:"bufferLimit"`
	MaxRetry    int `mapstructure:"MAX_RETRY" json:"maxRetry" yaml:"maxRetry"`
}
