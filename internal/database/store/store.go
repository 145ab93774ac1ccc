// Package store 定義 Key Store、Webhook Registry、Delivery 佇列與 Usage log 的儲存介面。
// mongodb/repository 與 memory 兩種實作共用同一組契約。
package store

import (
	"context"
	"errors"
	"time"

	"fingate/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
	// ErrClaimLost 租約已過期或被其他 worker 取得，結果不得寫回
	ErrClaimLost = errors.New("store: delivery claim lost")
)

type APIKeyStore interface {
	Create(ctx context.Context, key *model.APIKey) (*model.APIKey, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.APIKey, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	// TouchLastUsed 批次寫回 lastUsedAt；只會往後推進
	TouchLastUsed(ctx context.Context, touches map[primitive.ObjectID]time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type WebhookStore interface {
	Create(ctx context.Context, webhook *model.Webhook) (*model.Webhook, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Webhook, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Webhook, error)
	// ListSubscribers 回傳 owner 底下啟用中且訂閱 eventType 的 webhook
	ListSubscribers(ctx context.Context, ownerID, eventType string) ([]*model.Webhook, error)
	Update(ctx context.Context, webhook *model.Webhook) error
	UpdateSecret(ctx context.Context, id primitive.ObjectID, secret string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ClaimOptions 認領 pending delivery 的條件
type ClaimOptions struct {
	Now         time.Time
	Limit       int
	MaxAttempts int
	Lease       time.Duration
	Token       string
}

type DeliveryStore interface {
	Create(ctx context.Context, delivery *model.WebhookDelivery) (*model.WebhookDelivery, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.WebhookDelivery, error)
	ListByWebhook(ctx context.Context, webhookID primitive.ObjectID, limit int64) ([]*model.WebhookDelivery, error)
	// Claim 以條件更新認領最多 Limit 筆（最舊優先）；同一筆在租約內不會被兩個 token 取得
	Claim(ctx context.Context, opts ClaimOptions) ([]*model.WebhookDelivery, error)
	// Renew 仍持有 token 時把租約延長到 until；已被重新認領回傳 ErrClaimLost
	Renew(ctx context.Context, id primitive.ObjectID, token string, until time.Time) error
	// SaveOutcome 寫回投遞結果並釋放租約；token 不符回傳 ErrClaimLost
	SaveOutcome(ctx context.Context, delivery *model.WebhookDelivery, token string) error
	// Release 不計次數，釋放租約並延後到 nextAttemptAt
	Release(ctx context.Context, id primitive.ObjectID, token string, nextAttemptAt time.Time) error
}

type UsageStore interface {
	Append(ctx context.Context, entry *model.UsageLog) error
	ListByKey(ctx context.Context, apiKeyID string, limit int64) ([]*model.UsageLog, error)
	Count(ctx context.Context) (int64, error)
}

// Stores 依 storage driver 建立的一組實作
type Stores struct {
	APIKeys    APIKeyStore
	Webhooks   WebhookStore
	Deliveries DeliveryStore
	Usage      UsageStore
}
