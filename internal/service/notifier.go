package service

import (
	"context"

	fluentdModel "fingate/internal/database/fluentd/model"
	fluentdRepository "fingate/internal/database/fluentd/repository"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/telemetry"

	"go.uber.org/zap"
)

// Notifier delivery 進入 failed 終態時通知 owner 的外部通道
type Notifier interface {
	DeliveryFailed(ctx context.Context, webhook *model.Webhook, delivery *model.WebhookDelivery)
}

// LogNotifier 寫 zap 告警並送出 fluentd webhook_failed 紀錄，由下游告警系統通知 owner
type LogNotifier struct {
	logRepo *fluentdRepository.LogRepository
	metric  *telemetry.Metric
	logger  *zap.Logger
}

func NewLogNotifier(logRepo *fluentdRepository.LogRepository, metric *telemetry.Metric, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logRepo: logRepo, metric: metric, logger: logger}
}

func (n *LogNotifier) DeliveryFailed(ctx context.Context, webhook *model.Webhook, delivery *model.WebhookDelivery) {
	n.metric.IncDeliveryFailed()
	n.logger.Warn("webhook delivery failed permanently",
		zap.String("deliveryID", delivery.ID.Hex()),
		zap.String("webhookID", webhook.ID.Hex()),
		zap.String("ownerID", delivery.OwnerID),
		zap.String("url", webhook.URL),
		zap.String("eventType", delivery.EventType),
		zap.Int("attempts", delivery.Attempts),
		zap.Int("httpStatus", delivery.HTTPStatus),
		zap.String("error", delivery.ErrorMessage),
	)
	if n.logRepo == nil {
		return
	}
	err := n.logRepo.LogWebhookFailed(ctx, fluentdModel.WebhookFailedLog{
		DeliveryID:   delivery.ID.Hex(),
		WebhookID:    webhook.ID.Hex(),
		OwnerID:      delivery.OwnerID,
		URL:          webhook.URL,
		EventType:    delivery.EventType,
		Attempts:     delivery.Attempts,
		HTTPStatus:   delivery.HTTPStatus,
		ErrorMessage: delivery.ErrorMessage,
	})
	if err != nil {
		n.logger.Error("ship webhook failed log failed", zap.String("deliveryID", delivery.ID.Hex()), zap.Error(err))
	}
}
