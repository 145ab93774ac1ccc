package repository

import (
	"context"
	"encoding/json"
	"time"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/database/client"
	"fingate/internal/database/fluentd/model"
)

// TimeLayout 所有 fluentd 紀錄共用的時間格式
const TimeLayout = "2006-01-02 15:04:05.999999 UTC"

// LogRepository 統一負責發送 Request/Response/Usage/Delivery Log 到 Fluentd
type LogRepository struct {
	fluentdClient client.Client
	version       string
}

func NewLogRepository(config *config.Configuration, client client.Client) *LogRepository {
	version := "1.0.0"
	if config.App.Version != "" {
		version = config.App.Version
	}
	return &LogRepository{fluentdClient: client, version: version}
}

// post struct 轉 map 後送出（fluent 以 msgpack 編碼 map 最穩定）
func (repository *LogRepository) post(ctx context.Context, tag core.FluentdSubTag, record any) error {
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var fluentdMessage map[string]any
	if err := json.Unmarshal(b, &fluentdMessage); err != nil {
		return err
	}
	return repository.fluentdClient.Post(ctx, string(tag), fluentdMessage)
}

func (repository *LogRepository) stamp(loggedAt, version *string) {
	if *loggedAt == "" {
		*loggedAt = time.Now().UTC().Format(TimeLayout)
	}
	if *version == "" {
		*version = repository.version
	}
}

func (repository *LogRepository) LogRequest(ctx context.Context, req model.RequestLog) error {
	repository.stamp(&req.LoggedAt, &req.Version)
	return repository.post(ctx, core.FluentdRequest, req)
}

func (repository *LogRepository) LogResponse(ctx context.Context, resp model.ResponseLog) error {
	repository.stamp(&resp.LoggedAt, &resp.Version)
	return repository.post(ctx, core.FluentdResponse, resp)
}

func (repository *LogRepository) LogUsage(ctx context.Context, usage model.UsageLog) error {
	repository.stamp(&usage.LoggedAt, &usage.Version)
	return repository.post(ctx, core.FluentdUsage, usage)
}

func (repository *LogRepository) LogDelivery(ctx context.Context, delivery model.DeliveryLog) error {
	repository.stamp(&delivery.LoggedAt, &delivery.Version)
	return repository.post(ctx, core.FluentdDelivery, delivery)
}

func (repository *LogRepository) LogWebhookFailed(ctx context.Context, failed model.WebhookFailedLog) error {
	repository.stamp(&failed.LoggedAt, &failed.Version)
	return repository.post(ctx, core.FluentdWebhookFailed, failed)
}
