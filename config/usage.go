package config

type Usage struct {
	// 非同步佇列大小，滿了就丟棄並記 warn
	BufferSize   int  `mapstructure:"BUFFER_SIZE" json:"bufferSize" yaml:"bufferSize"`
	StoreEnabled bool `mapstructure:"STORE_ENABLED" json:"storeEnabled" yaml:"storeEnabled"`
}

func (u Usage) Buffer() int {
	if u.BufferSize <= 0 {
		return 1024
	}
	return u.BufferSize
}
