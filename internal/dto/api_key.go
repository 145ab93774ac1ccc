package dto

import (
	"time"

	"fingate/internal/pkg/request"
)

// 建立 API Key
type CreateAPIKeyDto struct {
	Name               string     `json:"name" binding:"required,max=100"`
	RateLimitPerMinute *int       `json:"rateLimitPerMinute" binding:"omitempty,min=1,max=100000"`
	ExpiresAt          *time.Time `json:"expiresAt" binding:"omitempty"`
}

func (CreateAPIKeyDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Name.required":          "name is required",
		"Name.max":               "name must be at most 100 characters",
		"RateLimitPerMinute.min": "rateLimitPerMinute must be at least 1",
		"RateLimitPerMinute.max": "rateLimitPerMinute must be at most 100000",
	}
}

type SetAPIKeyActiveDto struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// APIKeyResponseDto 讀取時只有 prefix，不含明文
type APIKeyResponseDto struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"ownerId"`
	Name               string     `json:"name"`
	KeyPrefix          string     `json:"keyPrefix"`
	RateLimitPerMinute int        `json:"rateLimitPerMinute"`
	IsActive           bool       `json:"isActive"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt         *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// CreatedAPIKeyResponseDto 只有建立時回傳一次明文
type CreatedAPIKeyResponseDto struct {
	APIKeyResponseDto
	Key string `json:"key"`
}
