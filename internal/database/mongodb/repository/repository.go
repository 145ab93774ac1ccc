package repository

import (
	"errors"

	"fingate/internal/database/store"

	"github.com/google/wire"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// 統一管理所有 MongoDB repository
type MongoDBRepository struct {
	apiKeyRepository   *APIKeyRepository
	webhookRepository  *WebhookRepository
	deliveryRepository *DeliveryRepository
	usageLogRepository *UsageLogRepository
}

// 建立 MongoDB repository 物件
func NewMongoDBRepository(
	apiKeyRepository *APIKeyRepository,
	webhookRepository *WebhookRepository,
	deliveryRepository *DeliveryRepository,
	usageLogRepository *UsageLogRepository,
) *MongoDBRepository {
	return &MongoDBRepository{
		apiKeyRepository:   apiKeyRepository,
		webhookRepository:  webhookRepository,
		deliveryRepository: deliveryRepository,
		usageLogRepository: usageLogRepository,
	}
}

// Stores 轉成 store 介面組合
func (repository *MongoDBRepository) Stores() *store.Stores {
	return &store.Stores{
		APIKeys:    repository.apiKeyRepository,
		Webhooks:   repository.webhookRepository,
		Deliveries: repository.deliveryRepository,
		Usage:      repository.usageLogRepository,
	}
}

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewAPIKeyRepository,
	NewWebhookRepository,
	NewDeliveryRepository,
	NewUsageLogRepository,
	NewMongoDBRepository)

func withUpdatedAt(update bson.M) bson.M {
	// 確保 $currentDate 存在
	currentDate, ok := update["$currentDate"].(bson.M)
	if !ok || currentDate == nil {
		currentDate = bson.M{}
	}
	currentDate["updatedAt"] = true
	update["$currentDate"] = currentDate
	return update
}

func mapFindError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}
