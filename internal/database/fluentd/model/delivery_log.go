package model

// DeliveryLog 每次 webhook 投遞嘗試
type DeliveryLog struct {
	DeliveryID   string `bson:"delivery_id" json:"delivery_id"`
	WebhookID    string `bson:"webhook_id" json:"webhook_id"`
	OwnerID      string `bson:"owner_id" json:"owner_id"`
	EventType    string `bson:"event_type" json:"event_type"`
	Attempt      int    `bson:"attempt" json:"attempt"`
	Status       string `bson:"status" json:"status"`
	HTTPStatus   int    `bson:"http_status,omitempty" json:"http_status,omitempty"`
	ErrorMessage string `bson:"error_message,omitempty" json:"error_message,omitempty"`
	LatencyMs    int64  `bson:"latency_ms" json:"latency_ms"`
	Version      string `bson:"version" json:"version"`
	LoggedAt     string `bson:"logged_at" json:"logged_at"`
}

// WebhookFailedLog 投遞進入 failed 終態時送出，供告警使用
type WebhookFailedLog struct {
	DeliveryID   string `bson:"delivery_id" json:"delivery_id"`
	WebhookID    string `bson:"webhook_id" json:"webhook_id"`
	OwnerID      string `bson:"owner_id" json:"owner_id"`
	URL          string `bson:"url" json:"url"`
	EventType    string `bson:"event_type" json:"event_type"`
	Attempts     int    `bson:"attempts" json:"attempts"`
	HTTPStatus   int    `bson:"http_status,omitempty" json:"http_status,omitempty"`
	ErrorMessage string `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Version      string `bson:"version" json:"version"`
	LoggedAt     string `bson:"logged_at" json:"logged_at"`
}
