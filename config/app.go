package config

import "time"

// App 服務本身的設定，環境變數前綴 APP_
type App struct {
	Env     string `mapstructure:"ENV" json:"env" yaml:"env"`
	Port    uint32 `mapstructure:"PORT" json:"port" yaml:"port"`
	Name    string `mapstructure:"NAME" json:"name" yaml:"name"`
	Version string `mapstructure:"VERSION" json:"version" yaml:"version"`
	// API Key 雜湊的 pepper
	SecretKey string `mapstructure:"SECRET_KEY" json:"secret_key" yaml:"secret_key"`
	// 管理端 JWT 的 HS256 金鑰；production 必填，其他環境未設定時沿用 SecretKey
	JWTSecret      string `mapstructure:"JWT_SECRET" json:"jwt_secret" yaml:"jwt_secret"`
	SwaggerEnabled bool   `mapstructure:"SWAGGER_ENABLED" json:"swagger_enabled" yaml:"swagger_enabled"`
	// 收到 SIGTERM 後等待請求結束的秒數
	ShutdownSeconds int `mapstructure:"SHUTDOWN_SECONDS" json:"shutdown_seconds" yaml:"shutdown_seconds"`
}

func (a App) ShutdownTimeout() time.Duration {
	if a.ShutdownSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.ShutdownSeconds) * time.Second
}

func (a App) TokenSecret() string {
	if a.JWTSecret == "" {
		return a.SecretKey
	}
	return a.JWTSecret
}

func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}
