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

type UsageLogRepository struct {
	collection *mongo.Collection
}

var _ store.UsageStore = (*UsageLogRepository)(nil)

func NewUsageLogRepository(mongoClient *client.MongoClient) *UsageLogRepository {
	repository := &UsageLogRepository{
		collection: mongoClient.Collection(core.MongoCollectionUsageLogs),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

// 建索引：apiKeyID + timestamp（用量查詢）
func (repository *UsageLogRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "apiKeyID", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_apiKeyID_timestamp_desc"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

func (repository *UsageLogRepository) Append(contextValue context.Context, entry *model.UsageLog) (returnedError error) {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, returnedError = repository.collection.InsertOne(contextValue, entry)
	return returnedError
}

func (repository *UsageLogRepository) ListByKey(contextValue context.Context, apiKeyID string, limit int64) (_ []*model.UsageLog, returnedError error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, findError := repository.collection.Find(contextValue, bson.M{"apiKeyID": apiKeyID}, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var results []*model.UsageLog
	if returnedError = cursor.All(contextValue, &results); returnedError != nil {
		return nil, returnedError
	}
	return results, nil
}

func (repository *UsageLogRepository) Count(contextValue context.Context) (int64, error) {
	return repository.collection.CountDocuments(contextValue, bson.M{})
}
