package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fingate/internal/core"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"
	"fingate/internal/dto"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/telemetry"
	"fingate/utils/validate"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventService 領域事件入口：為每個訂閱中的 webhook 建立一筆 pending delivery
type EventService struct {
	trace      *telemetry.Trace
	webhooks   store.WebhookStore
	deliveries store.DeliveryStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewEventService(
	trace *telemetry.Trace,
	webhooks store.WebhookStore,
	deliveries store.DeliveryStore,
	logger *zap.Logger,
) *EventService {
	return &EventService{trace: trace, webhooks: webhooks, deliveries: deliveries, logger: logger, now: time.Now}
}

// Emit payload 原樣保存，之後簽章與投遞都使用同一份 bytes
func (s *EventService) Emit(ctx context.Context, ownerID, eventType string, payload json.RawMessage) (_ *dto.EmitEventResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if !validate.IsValidEventType(eventType) {
		return nil, cErr.ValidateErr("invalid event type: " + eventType)
	}
	if !json.Valid(payload) {
		return nil, cErr.ValidateErr("payload must be valid JSON")
	}

	subscribers, err := s.webhooks.ListSubscribers(ctx, ownerID, eventType)
	if err != nil {
		return nil, cErr.DatabaseError("list webhook subscribers failed")
	}

	now := s.now().UTC()
	resp := &dto.EmitEventResponseDto{EventType: eventType, DeliveryIDs: []string{}}
	for _, webhook := range subscribers {
		created, err := s.deliveries.Create(ctx, &model.WebhookDelivery{
			WebhookID:     webhook.ID,
			OwnerID:       ownerID,
			EventType:     eventType,
			Payload:       append(json.RawMessage(nil), payload...),
			Status:        core.DeliveryPending,
			NextAttemptAt: now,
			CreatedAt:     now,
		})
		if err != nil {
			s.logger.Error("create webhook delivery failed",
				zap.String("webhookID", webhook.ID.Hex()),
				zap.String("eventType", eventType),
				zap.Error(err),
			)
			return resp, cErr.DatabaseError("create webhook delivery failed")
		}
		resp.DeliveryIDs = append(resp.DeliveryIDs, created.ID.Hex())
	}
	s.logger.Info("event emitted",
		zap.String("ownerID", ownerID),
		zap.String("eventType", eventType),
		zap.Int("deliveries", len(resp.DeliveryIDs)),
	)
	return resp, nil
}

// Retry 只能重送 failed 的 delivery；原紀錄維持終態，另建一筆新的 pending
func (s *EventService) Retry(ctx context.Context, ownerID string, deliveryID primitive.ObjectID) (_ *dto.DeliveryResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	original, err := s.deliveries.GetByID(ctx, deliveryID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && original.OwnerID != ownerID) {
		return nil, cErr.NotFound("delivery not found")
	}
	if err != nil {
		return nil, cErr.DatabaseError("get delivery failed")
	}
	if original.Status != core.DeliveryFailed {
		return nil, cErr.Conflict("only failed deliveries can be retried")
	}
	webhook, err := s.webhooks.GetByID(ctx, original.WebhookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, cErr.Conflict("webhook no longer exists")
	}
	if err != nil {
		return nil, cErr.DatabaseError("get webhook failed")
	}

	now := s.now().UTC()
	retryOf := original.ID
	created, err := s.deliveries.Create(ctx, &model.WebhookDelivery{
		WebhookID:     webhook.ID,
		OwnerID:       ownerID,
		EventType:     original.EventType,
		Payload:       original.Payload,
		Status:        core.DeliveryPending,
		NextAttemptAt: now,
		RetryOf:       &retryOf,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, cErr.DatabaseError("create webhook delivery failed")
	}
	return modelToDeliveryResponseDto(created), nil
}
