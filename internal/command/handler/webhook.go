package command

import (
	"context"
	"time"

	"fingate/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	worker *service.DeliveryWorker
	logger *zap.Logger
}

func NewWebhookHandler(worker *service.DeliveryWorker, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		worker: worker,
		logger: logger,
	}
}

// DeliverOnce 手動跑一輪投遞，給外部排程（k8s CronJob）或除錯使用
func (handler *WebhookHandler) DeliverOnce(cmd *cobra.Command, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	summary, err := handler.worker.RunOnce(ctx)
	if err != nil {
		handler.logger.Error("webhook delivery run failed", zap.Error(err))
		return err
	}
	cmd.Printf("claimed=%d delivered=%d retrying=%d failed=%d skipped=%d lost=%d\n",
		summary.Claimed, summary.Delivered, summary.Retrying, summary.Failed, summary.Skipped, summary.Lost)
	return nil
}
