package service

import (
	"context"
	"errors"

	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"
	"fingate/internal/dto"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/telemetry"
	"fingate/utils/signature"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// deliveryListLimit 管理端查詢 delivery 的筆數上限
const deliveryListLimit = 100

// WebhookService Webhook Registry：owner 範圍內的 CRUD，secret 只在建立 / 輪替時回傳
type WebhookService struct {
	trace      *telemetry.Trace
	webhooks   store.WebhookStore
	deliveries store.DeliveryStore
	logger     *zap.Logger
}

func NewWebhookService(
	trace *telemetry.Trace,
	webhooks store.WebhookStore,
	deliveries store.DeliveryStore,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{trace: trace, webhooks: webhooks, deliveries: deliveries, logger: logger}
}

func (s *WebhookService) Create(ctx context.Context, ownerID string, req *dto.CreateWebhookDto) (_ *dto.WebhookSecretResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	secret, err := signature.NewSecret()
	if err != nil {
		return nil, cErr.InternalServer("failed to generate webhook secret")
	}
	created, err := s.webhooks.Create(ctx, &model.Webhook{
		OwnerID:  ownerID,
		URL:      req.URL,
		Events:   uniqueEvents(req.Events),
		Secret:   secret,
		IsActive: true,
	})
	if err != nil {
		s.logger.Error("create webhook failed", zap.String("ownerID", ownerID), zap.Error(err))
		return nil, cErr.DatabaseError("create webhook failed")
	}
	return &dto.WebhookSecretResponseDto{WebhookResponseDto: *modelToWebhookResponseDto(created), Secret: secret}, nil
}

func (s *WebhookService) List(ctx context.Context, ownerID string) (_ []*dto.WebhookResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	webhooks, err := s.webhooks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, cErr.DatabaseError("list webhooks failed")
	}
	resp := make([]*dto.WebhookResponseDto, len(webhooks))
	for i, w := range webhooks {
		resp[i] = modelToWebhookResponseDto(w)
	}
	return resp, nil
}

func (s *WebhookService) owned(ctx context.Context, ownerID string, id primitive.ObjectID) (*model.Webhook, error) {
	webhook, err := s.webhooks.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && webhook.OwnerID != ownerID) {
		return nil, cErr.NotFound("webhook not found")
	}
	if err != nil {
		return nil, cErr.DatabaseError("get webhook failed")
	}
	return webhook, nil
}

func (s *WebhookService) Get(ctx context.Context, ownerID string, id primitive.ObjectID) (_ *dto.WebhookResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	webhook, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return modelToWebhookResponseDto(webhook), nil
}

func (s *WebhookService) Update(ctx context.Context, ownerID string, id primitive.ObjectID, req *dto.UpdateWebhookDto) (_ *dto.WebhookResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	webhook, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if req.URL != nil {
		webhook.URL = *req.URL
	}
	if req.Events != nil {
		webhook.Events = uniqueEvents(*req.Events)
	}
	if req.IsActive != nil {
		webhook.IsActive = *req.IsActive
	}
	if err := s.webhooks.Update(ctx, webhook); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, cErr.NotFound("webhook not found")
		}
		return nil, cErr.DatabaseError("update webhook failed")
	}
	return modelToWebhookResponseDto(webhook), nil
}

// RotateSecret 新 secret 立即生效，尚未投遞的 delivery 會以新 secret 簽章
func (s *WebhookService) RotateSecret(ctx context.Context, ownerID string, id primitive.ObjectID) (_ *dto.WebhookSecretResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	webhook, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	secret, err := signature.NewSecret()
	if err != nil {
		return nil, cErr.InternalServer("failed to generate webhook secret")
	}
	if err := s.webhooks.UpdateSecret(ctx, id, secret); err != nil {
		return nil, cErr.DatabaseError("rotate webhook secret failed")
	}
	return &dto.WebhookSecretResponseDto{WebhookResponseDto: *modelToWebhookResponseDto(webhook), Secret: secret}, nil
}

// Delete 不動既有 delivery；worker 會把它們標記為 failed（webhook deleted）
func (s *WebhookService) Delete(ctx context.Context, ownerID string, id primitive.ObjectID) (returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.webhooks.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return cErr.DatabaseError("delete webhook failed")
	}
	return nil
}

// ListDeliveries limit <= 0 或超過上限時取 deliveryListLimit
func (s *WebhookService) ListDeliveries(ctx context.Context, ownerID string, id primitive.ObjectID, limit int) (_ []*dto.DeliveryResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > deliveryListLimit {
		limit = deliveryListLimit
	}
	deliveries, err := s.deliveries.ListByWebhook(ctx, id, int64(limit))
	if err != nil {
		return nil, cErr.DatabaseError("list deliveries failed")
	}
	resp := make([]*dto.DeliveryResponseDto, len(deliveries))
	for i, d := range deliveries {
		resp[i] = modelToDeliveryResponseDto(d)
	}
	return resp, nil
}

func uniqueEvents(events []string) []string {
	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func modelToWebhookResponseDto(w *model.Webhook) *dto.WebhookResponseDto {
	return &dto.WebhookResponseDto{
		ID:        w.ID.Hex(),
		OwnerID:   w.OwnerID,
		URL:       w.URL,
		Events:    w.Events,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func modelToDeliveryResponseDto(d *model.WebhookDelivery) *dto.DeliveryResponseDto {
	resp := &dto.DeliveryResponseDto{
		ID:            d.ID.Hex(),
		WebhookID:     d.WebhookID.Hex(),
		EventType:     d.EventType,
		Payload:       d.Payload,
		Status:        string(d.Status),
		HTTPStatus:    d.HTTPStatus,
		ResponseBody:  d.ResponseBody,
		ErrorMessage:  d.ErrorMessage,
		Attempts:      d.Attempts,
		LatencyMs:     d.LatencyMs,
		NextAttemptAt: d.NextAttemptAt,
		DeliveredAt:   d.DeliveredAt,
		CreatedAt:     d.CreatedAt,
	}
	if d.RetryOf != nil {
		resp.RetryOf = d.RetryOf.Hex()
	}
	return resp
}

