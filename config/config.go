package config

import (
	"errors"
	"fmt"
	"net/url"
)

type Configuration struct {
	App       App             `mapstructure:"APP" json:"app" yaml:"app"`
	Log       Log             `mapstructure:"LOG" json:"log" yaml:"log"`
	Storage   Storage         `mapstructure:"STORAGE" json:"storage" yaml:"storage"`
	Redis     Redis           `mapstructure:"REDIS" json:"redis" yaml:"redis"`
	MongoDB   MongoDB         `mapstructure:"MONGODB" json:"mongodb" yaml:"mongodb"`
	RateLimit RateLimit       `mapstructure:"RATE_LIMIT" json:"rateLimit" yaml:"rateLimit"`
	Gateway   Gateway         `mapstructure:"GATEWAY" json:"gateway" yaml:"gateway"`
	Webhook   Webhook         `mapstructure:"WEBHOOK" json:"webhook" yaml:"webhook"`
	Usage     Usage           `mapstructure:"USAGE" json:"usage" yaml:"usage"`
	Telemetry TelemetryConfig `mapstructure:"TELEMETRY" yaml:"telemetry"`
	Fluentd   Fluentd         `mapstructure:"FLUENTD" yaml:"fluentd"`
}

// Validate 啟動前檢查，缺少必要設定時直接拒絕啟動
func (c *Configuration) Validate() error {
	var errs []error
	if c.App.SecretKey == "" {
		errs = append(errs, errors.New("APP__SECRET_KEY is required"))
	}
	switch {
	case c.App.IsProduction() && c.App.JWTSecret == "":
		errs = append(errs, errors.New("APP__JWT_SECRET is required in production"))
	case c.App.JWTSecret != "" && c.App.JWTSecret == c.App.SecretKey:
		errs = append(errs, errors.New("APP__JWT_SECRET must differ from APP__SECRET_KEY"))
	}
	switch c.Storage.Driver {
	case "", StorageDriverMongo:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("MONGODB__URI is required for the mongo storage driver"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.RateLimit.Store {
	case "", RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS__HOST is required for the redis rate limit store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit store %q", c.RateLimit.Store))
	}
	for route, base := range c.Gateway.Upstreams {
		if u, err := url.Parse(base); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("upstream %s has an invalid base URL %q", route, base))
		}
	}
	return errors.Join(errs...)
}
