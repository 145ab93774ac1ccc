package dto

import (
	"encoding/json"
	"time"

	"fingate/internal/pkg/request"
)

// EmitEventDto 由內部服務送入的領域事件
type EmitEventDto struct {
	EventType string          `json:"eventType" binding:"required,event_type"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

func (EmitEventDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"EventType.required":   "eventType is required",
		"EventType.event_type": "eventType must look like resource.action",
		"Payload.required":     "payload is required",
	}
}

type EmitEventResponseDto struct {
	EventType   string   `json:"eventType"`
	DeliveryIDs []string `json:"deliveryIds"`
}

type DeliveryResponseDto struct {
	ID            string          `json:"id"`
	WebhookID     string          `json:"webhookId"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	HTTPStatus    int             `json:"httpStatus,omitempty"`
	ResponseBody  string          `json:"responseBody,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	Attempts      int             `json:"attempts"`
	LatencyMs     int64           `json:"latencyMs,omitempty"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	RetryOf       string          `json:"retryOf,omitempty"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
