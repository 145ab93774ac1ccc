package repository

import (
	"context"
	"fmt"
	"time"

	"fingate/internal/core"
	client "fingate/internal/database/client"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type APIKeyRepository struct {
	collection *mongo.Collection
}

var _ store.APIKeyStore = (*APIKeyRepository)(nil)

func NewAPIKeyRepository(mongoClient *client.MongoClient) *APIKeyRepository {
	repository := &APIKeyRepository{
		collection: mongoClient.Collection(core.MongoCollectionAPIKeys),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

// 建索引：
// 1) keyHash 唯一（認證時唯一查詢條件）
// 2) ownerID + createdAt（管理端列表）
func (repository *APIKeyRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "keyHash", Value: 1}},
			Options: options.Index().SetName("uniq_keyHash").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "ownerID", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_ownerID_createdAt"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

// Create 新增一筆 API Key（只存雜湊）
func (repository *APIKeyRepository) Create(contextValue context.Context, apiKey *model.APIKey) (_ *model.APIKey, returnedError error) {
	nowUTC := time.Now().UTC()
	apiKey.CreatedAt = nowUTC
	apiKey.UpdatedAt = nowUTC
	if apiKey.ID.IsZero() {
		apiKey.ID = primitive.NewObjectID()
	}

	insertResult, insertError := repository.collection.InsertOne(contextValue, apiKey)
	if insertError != nil {
		return nil, mapWriteError(insertError)
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	apiKey.ID = objectID
	return apiKey, nil
}

// GetByID 依 ID 取得單一 API Key
func (repository *APIKeyRepository) GetByID(contextValue context.Context, apiKeyIdentifier primitive.ObjectID) (_ *model.APIKey, returnedError error) {
	var apiKey model.APIKey
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"_id": apiKeyIdentifier}).Decode(&apiKey); returnedError != nil {
		return nil, mapFindError(returnedError)
	}
	return &apiKey, nil
}

// GetByHash 認證用查詢
func (repository *APIKeyRepository) GetByHash(contextValue context.Context, keyHash string) (_ *model.APIKey, returnedError error) {
	var apiKey model.APIKey
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"keyHash": keyHash}).Decode(&apiKey); returnedError != nil {
		return nil, mapFindError(returnedError)
	}
	return &apiKey, nil
}

// ListByOwner 取得 owner 底下的 API Key，新的在前
func (repository *APIKeyRepository) ListByOwner(contextValue context.Context, ownerID string) (_ []*model.APIKey, returnedError error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, findError := repository.collection.Find(contextValue, bson.M{"ownerID": ownerID}, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var results []*model.APIKey
	if returnedError = cursor.All(contextValue, &results); returnedError != nil {
		return nil, returnedError
	}
	return results, nil
}

// SetActive 啟用 / 停用
func (repository *APIKeyRepository) SetActive(contextValue context.Context, apiKeyIdentifier primitive.ObjectID, active bool) (returnedError error) {
	update := bson.M{"$set": bson.M{"isActive": active}}
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": apiKeyIdentifier}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// TouchLastUsed 以 BulkWrite 批次寫回；$max 保證 lastUsedAt 只往後推進
func (repository *APIKeyRepository) TouchLastUsed(contextValue context.Context, touches map[primitive.ObjectID]time.Time) (returnedError error) {
	if len(touches) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(touches))
	for apiKeyIdentifier, usedAt := range touches {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": apiKeyIdentifier}).
			SetUpdate(bson.M{"$max": bson.M{"lastUsedAt": usedAt.UTC()}}))
	}
	_, returnedError = repository.collection.BulkWrite(contextValue, writes, options.BulkWrite().SetOrdered(false))
	return returnedError
}

// Delete 依 ID 刪除
func (repository *APIKeyRepository) Delete(contextValue context.Context, apiKeyIdentifier primitive.ObjectID) (returnedError error) {
	result, deleteError := repository.collection.DeleteOne(contextValue, bson.M{"_id": apiKeyIdentifier})
	if deleteError != nil {
		return deleteError
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
