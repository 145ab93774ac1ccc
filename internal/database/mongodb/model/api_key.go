package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type APIKey struct {
	ID      primitive.ObjectID `json:"id" bson:"_id"`
	OwnerID string             `json:"ownerId" bson:"ownerID"`
	Name    string             `json:"name" bson:"name"`
	// HMAC-SHA256(明文)，不可逆；查詢只用這個欄位
	KeyHash string `json:"-" bson:"keyHash"`
	// 明文前綴，只供顯示
	KeyPrefix          string     `json:"keyPrefix" bson:"keyPrefix"`
	RateLimitPerMinute int        `json:"rateLimitPerMinute" bson:"rateLimitPerMinute"`
	IsActive           bool       `json:"isActive" bson:"isActive"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	// 由 KeyTouchBatcher 批次寫回
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" bson:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Expired 以傳入時間判斷，方便測試
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}
