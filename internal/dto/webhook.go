package dto

import (
	"time"

	"fingate/internal/pkg/request"
)

type CreateWebhookDto struct {
	URL    string   `json:"url" binding:"required,webhook_url"`
	Events []string `json:"events" binding:"required,min=1,dive,event_type"`
}

func (CreateWebhookDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"URL.required":        "url is required",
		"URL.webhook_url":     "url must be an absolute http(s) URL",
		"Events.required":     "events is required",
		"Events.min":          "events must contain at least one event type",
		"Events.*.event_type": "events contains an invalid event type",
	}
}

// UpdateWebhookDto 未提供的欄位維持原值
type UpdateWebhookDto struct {
	URL      *string   `json:"url" binding:"omitempty,webhook_url"`
	Events   *[]string `json:"events" binding:"omitempty,min=1,dive,event_type"`
	IsActive *bool     `json:"isActive" binding:"omitempty"`
}

func (UpdateWebhookDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"URL.webhook_url":     "url must be an absolute http(s) URL",
		"Events.min":          "events must contain at least one event type",
		"Events.*.event_type": "events contains an invalid event type",
	}
}

// WebhookResponseDto 讀取時不含 secret
type WebhookResponseDto struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WebhookSecretResponseDto 建立與輪替時回傳一次 secret
type WebhookSecretResponseDto struct {
	WebhookResponseDto
	Secret string `json:"secret"`
}
