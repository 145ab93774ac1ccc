package model

import (
	"encoding/json"
	"time"

	"fingate/internal/core"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Webhook struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	OwnerID   string             `json:"ownerId" bson:"ownerID"`
	URL       string             `json:"url" bson:"url"`
	Events    []string           `json:"events" bson:"events"`
	Secret    string             `json:"-" bson:"secret"` // 只在建立 / 輪替時回傳一次
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (w *Webhook) Subscribes(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

type WebhookDelivery struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	WebhookID primitive.ObjectID `json:"webhookId" bson:"webhookID"`
	OwnerID   string             `json:"ownerId" bson:"ownerID"`
	EventType string             `json:"eventType" bson:"eventType"`
	// 簽章對象就是這份 bytes，存取過程不可重新序列化
	Payload      json.RawMessage     `json:"payload" bson:"payload"`
	Status       core.DeliveryStatus `json:"status" bson:"status"`
	HTTPStatus   int                 `json:"httpStatus,omitempty" bson:"httpStatus,omitempty"`
	ResponseBody string              `json:"responseBody,omitempty" bson:"responseBody,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	Attempts     int                 `json:"attempts" bson:"attempts"`
	LatencyMs    int64               `json:"latencyMs,omitempty" bson:"latencyMs,omitempty"`
	// 下一次可被認領的時間
	NextAttemptAt time.Time `json:"nextAttemptAt" bson:"nextAttemptAt"`
	// 認領租約：claimToken 相同的 worker 才能寫回結果
	ClaimToken   string              `json:"-" bson:"claimToken,omitempty"`
	ClaimedUntil *time.Time          `json:"-" bson:"claimedUntil,omitempty"`
	RetryOf      *primitive.ObjectID `json:"retryOf,omitempty" bson:"retryOf,omitempty"`
	DeliveredAt  *time.Time          `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
}
