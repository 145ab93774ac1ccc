package model

// UsageLog 閘道每次請求的用量紀錄（含驗證失敗與限流拒絕）
type UsageLog struct {
	RequestID       string `bson:"request_id" json:"request_id"`
	APIKeyID        string `bson:"api_key_id,omitempty" json:"api_key_id,omitempty"`
	OwnerID         string `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Endpoint        string `bson:"endpoint" json:"endpoint"`
	Method          string `bson:"method" json:"method"`
	StatusCode      int    `bson:"status_code" json:"status_code"`
	ErrorCode       string `bson:"error_code,omitempty" json:"error_code,omitempty"`
	ResponseTimeMs  int64  `bson:"response_time_ms" json:"response_time_ms"`
	CreditsConsumed int    `bson:"credits_consumed" json:"credits_consumed"`
	Version         string `bson:"version" json:"version"`
	LoggedAt        string `bson:"logged_at" json:"logged_at"`
}
