package repository

import (
	"context"
	"errors"
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

type DeliveryRepository struct {
	collection *mongo.Collection
}

var _ store.DeliveryStore = (*DeliveryRepository)(nil)

func NewDeliveryRepository(mongoClient *client.MongoClient) *DeliveryRepository {
	repository := &DeliveryRepository{
		collection: mongoClient.Collection(core.MongoCollectionWebhookDeliveries),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

// 建索引：
// 1) status + nextAttemptAt + createdAt（worker 認領）
// 2) webhookID + createdAt（管理端查詢）
func (repository *DeliveryRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "nextAttemptAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_status_nextAttemptAt_createdAt"),
		},
		{
			Keys: bson.D{
				{Key: "webhookID", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_webhookID_createdAt_desc"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

func (repository *DeliveryRepository) Create(contextValue context.Context, delivery *model.WebhookDelivery) (_ *model.WebhookDelivery, returnedError error) {
	nowUTC := time.Now().UTC()
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = nowUTC
	}
	delivery.UpdatedAt = nowUTC
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	if delivery.Status == "" {
		delivery.Status = core.DeliveryPending
	}
	if _, returnedError = repository.collection.InsertOne(contextValue, delivery); returnedError != nil {
		return nil, mapWriteError(returnedError)
	}
	return delivery, nil
}

func (repository *DeliveryRepository) GetByID(contextValue context.Context, deliveryIdentifier primitive.ObjectID) (_ *model.WebhookDelivery, returnedError error) {
	var delivery model.WebhookDelivery
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"_id": deliveryIdentifier}).Decode(&delivery); returnedError != nil {
		return nil, mapFindError(returnedError)
	}
	return &delivery, nil
}

// ListByWebhook 新的在前
func (repository *DeliveryRepository) ListByWebhook(contextValue context.Context, webhookIdentifier primitive.ObjectID, limit int64) (_ []*model.WebhookDelivery, returnedError error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, findError := repository.collection.Find(contextValue, bson.M{"webhookID": webhookIdentifier}, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var results []*model.WebhookDelivery
	if returnedError = cursor.All(contextValue, &results); returnedError != nil {
		return nil, returnedError
	}
	return results, nil
}

// Claim 逐筆 FindOneAndUpdate；單文件更新為原子操作，同一筆不會同時被兩個 worker 取得
func (repository *DeliveryRepository) Claim(contextValue context.Context, claimOptions store.ClaimOptions) (_ []*model.WebhookDelivery, returnedError error) {
	nowUTC := claimOptions.Now.UTC()
	until := nowUTC.Add(claimOptions.Lease)
	filter := bson.M{
		"status":        core.DeliveryPending,
		"attempts":      bson.M{"$lt": claimOptions.MaxAttempts},
		"nextAttemptAt": bson.M{"$lte": nowUTC},
		"$or": bson.A{
			bson.M{"claimedUntil": bson.M{"$exists": false}},
			bson.M{"claimedUntil": nil},
			bson.M{"claimedUntil": bson.M{"$lte": nowUTC}},
		},
	}
	update := withUpdatedAt(bson.M{"$set": bson.M{
		"claimToken":   claimOptions.Token,
		"claimedUntil": until,
	}})
	findOptions := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var claimed []*model.WebhookDelivery
	for len(claimed) < claimOptions.Limit {
		var delivery model.WebhookDelivery
		findError := repository.collection.FindOneAndUpdate(contextValue, filter, update, findOptions).Decode(&delivery)
		if errors.Is(findError, mongo.ErrNoDocuments) {
			break
		}
		if findError != nil {
			// 已認領的部分仍回傳，租約到期後自然釋放
			return claimed, findError
		}
		claimed = append(claimed, &delivery)
	}
	return claimed, nil
}

func ownedFilter(deliveryIdentifier primitive.ObjectID, token string) bson.M {
	return bson.M{
		"_id":        deliveryIdentifier,
		"claimToken": token,
		"status":     core.DeliveryPending,
	}
}

// Renew 重新認領會覆寫 claimToken，token 仍相符即代表沒有其他 worker 接手
func (repository *DeliveryRepository) Renew(contextValue context.Context, deliveryIdentifier primitive.ObjectID, token string, until time.Time) (returnedError error) {
	filter := ownedFilter(deliveryIdentifier, token)
	update := bson.M{"$set": bson.M{"claimedUntil": until.UTC()}}
	result, updateError := repository.collection.UpdateOne(contextValue, filter, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return store.ErrClaimLost
	}
	return nil
}

// SaveOutcome 僅在仍持有租約時寫回
func (repository *DeliveryRepository) SaveOutcome(contextValue context.Context, delivery *model.WebhookDelivery, token string) (returnedError error) {
	set := bson.M{
		"status":        delivery.Status,
		"httpStatus":    delivery.HTTPStatus,
		"responseBody":  delivery.ResponseBody,
		"errorMessage":  delivery.ErrorMessage,
		"attempts":      delivery.Attempts,
		"latencyMs":     delivery.LatencyMs,
		"nextAttemptAt": delivery.NextAttemptAt,
	}
	if delivery.DeliveredAt != nil {
		set["deliveredAt"] = delivery.DeliveredAt.UTC()
	}
	update := bson.M{
		"$set":   set,
		"$unset": bson.M{"claimToken": "", "claimedUntil": ""},
	}
	result, updateError := repository.collection.UpdateOne(contextValue, ownedFilter(delivery.ID, token), withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return store.ErrClaimLost
	}
	return nil
}

// Release 不增加 attempts，延後到 nextAttemptAt
func (repository *DeliveryRepository) Release(contextValue context.Context, deliveryIdentifier primitive.ObjectID, token string, nextAttemptAt time.Time) (returnedError error) {
	update := bson.M{
		"$set":   bson.M{"nextAttemptAt": nextAttemptAt.UTC()},
		"$unset": bson.M{"claimToken": "", "claimedUntil": ""},
	}
	result, updateError := repository.collection.UpdateOne(contextValue, ownedFilter(deliveryIdentifier, token), withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return store.ErrClaimLost
	}
	return nil
}
