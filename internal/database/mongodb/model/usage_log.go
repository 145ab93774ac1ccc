package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UsageLog append-only，寫入後不再修改
type UsageLog struct {
	ID              primitive.ObjectID `json:"id" bson:"_id"`
	RequestID       string             `json:"requestId" bson:"requestID"`
	APIKeyID        string             `json:"apiKeyId,omitempty" bson:"apiKeyID,omitempty"` // 驗證失敗時為空
	OwnerID         string             `json:"ownerId,omitempty" bson:"ownerID,omitempty"`
	Endpoint        string             `json:"endpoint" bson:"endpoint"`
	Method          string             `json:"method" bson:"method"`
	StatusCode      int                `json:"statusCode" bson:"statusCode"`
	ErrorCode       string             `json:"errorCode,omitempty" bson:"errorCode,omitempty"`
	ResponseTimeMs  int64              `json:"responseTimeMs" bson:"responseTimeMs"`
	CreditsConsumed int                `json:"creditsConsumed" bson:"creditsConsumed"`
	Timestamp       time.Time          `json:"timestamp" bson:"timestamp"`
}
