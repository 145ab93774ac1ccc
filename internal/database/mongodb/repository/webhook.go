package repository

import (
	"context"
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

type WebhookRepository struct {
	collection *mongo.Collection
}

var _ store.WebhookStore = (*WebhookRepository)(nil)

func NewWebhookRepository(mongoClient *client.MongoClient) *WebhookRepository {
	repository := &WebhookRepository{
		collection: mongoClient.Collection(core.MongoCollectionWebhooks),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

// 建索引：ownerID + events（事件扇出查詢）
func (repository *WebhookRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "ownerID", Value: 1},
				{Key: "events", Value: 1},
			},
			Options: options.Index().SetName("idx_ownerID_events"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

func (repository *WebhookRepository) Create(contextValue context.Context, webhook *model.Webhook) (_ *model.Webhook, returnedError error) {
	nowUTC := time.Now().UTC()
	webhook.CreatedAt = nowUTC
	webhook.UpdatedAt = nowUTC
	if webhook.ID.IsZero() {
		webhook.ID = primitive.NewObjectID()
	}
	if _, returnedError = repository.collection.InsertOne(contextValue, webhook); returnedError != nil {
		return nil, mapWriteError(returnedError)
	}
	return webhook, nil
}

func (repository *WebhookRepository) GetByID(contextValue context.Context, webhookIdentifier primitive.ObjectID) (_ *model.Webhook, returnedError error) {
	var webhook model.Webhook
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"_id": webhookIdentifier}).Decode(&webhook); returnedError != nil {
		return nil, mapFindError(returnedError)
	}
	return &webhook, nil
}

func (repository *WebhookRepository) find(contextValue context.Context, filter bson.M) (_ []*model.Webhook, returnedError error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var results []*model.Webhook
	if returnedError = cursor.All(contextValue, &results); returnedError != nil {
		return nil, returnedError
	}
	return results, nil
}

func (repository *WebhookRepository) ListByOwner(contextValue context.Context, ownerID string) ([]*model.Webhook, error) {
	return repository.find(contextValue, bson.M{"ownerID": ownerID})
}

// ListSubscribers events 為陣列，等值比對即為 contains
func (repository *WebhookRepository) ListSubscribers(contextValue context.Context, ownerID, eventType string) ([]*model.Webhook, error) {
	return repository.find(contextValue, bson.M{
		"ownerID":  ownerID,
		"isActive": true,
		"events":   eventType,
	})
}

func (repository *WebhookRepository) Update(contextValue context.Context, webhook *model.Webhook) (returnedError error) {
	update := bson.M{"$set": bson.M{
		"url":      webhook.URL,
		"events":   webhook.Events,
		"isActive": webhook.IsActive,
	}}
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": webhook.ID}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (repository *WebhookRepository) UpdateSecret(contextValue context.Context, webhookIdentifier primitive.ObjectID, secret string) (returnedError error) {
	update := bson.M{"$set": bson.M{"secret": secret}}
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": webhookIdentifier}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (repository *WebhookRepository) Delete(contextValue context.Context, webhookIdentifier primitive.ObjectID) (returnedError error) {
	result, deleteError := repository.collection.DeleteOne(contextValue, bson.M{"_id": webhookIdentifier})
	if deleteError != nil {
		return deleteError
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
