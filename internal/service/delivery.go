package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fingate/config"
	"fingate/internal/core"
	fluentdModel "fingate/internal/database/fluentd/model"
	fluentdRepository "fingate/internal/database/fluentd/repository"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"
	"fingate/internal/telemetry"
	"fingate/utils/signature"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const errWebhookDeleted = "webhook deleted"

// DeliverySummary 單次 RunOnce 的結果統計
type DeliverySummary struct {
	Claimed   int `json:"claimed"`
	Delivered int `json:"delivered"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Lost      int `json:"lost"`
}

// DeliveryWorker 認領 pending delivery、簽章後 POST 給訂閱端並寫回結果
type DeliveryWorker struct {
	conf       config.Webhook
	version    string
	webhooks   store.WebhookStore
	deliveries store.DeliveryStore
	httpClient *http.Client
	logRepo    *fluentdRepository.LogRepository
	notifier   Notifier
	trace      *telemetry.Trace
	metric     *telemetry.Metric
	logger     *zap.Logger
	now        func() time.Time
	newToken   func() string
}

func NewDeliveryWorker(
	conf *config.Configuration,
	webhooks store.WebhookStore,
	deliveries store.DeliveryStore,
	httpClient *http.Client,
	logRepo *fluentdRepository.LogRepository,
	notifier Notifier,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	logger *zap.Logger,
) *DeliveryWorker {
	return &DeliveryWorker{
		conf:       conf.Webhook,
		version:    conf.App.Version,
		webhooks:   webhooks,
		deliveries: deliveries,
		httpClient: httpClient,
		logRepo:    logRepo,
		notifier:   notifier,
		trace:      trace,
		metric:     metric,
		logger:     logger,
		now:        time.Now,
		newToken:   func() string { return uuid.NewString() },
	}
}

// RunOnce 處理一批（最多 BatchSize 筆）；每筆結果寫回後才處理下一筆
func (w *DeliveryWorker) RunOnce(ctx context.Context) (summary DeliverySummary, returnedError error) {
	ctx, span, end := w.trace.WithSpan(ctx, string(core.SpanDeliveryRun))
	defer func() { end(returnedError) }()
	defer func() {
		w.trace.ApplyTraceAttributes(span, core.TraceDeliveryRunMeta{
			Claimed:   summary.Claimed,
			Delivered: summary.Delivered,
			Retrying:  summary.Retrying,
			Failed:    summary.Failed,
			Skipped:   summary.Skipped,
			Abandoned: summary.Lost,
		})
	}()

	token := w.newToken()
	claimed, err := w.deliveries.Claim(ctx, store.ClaimOptions{
		Now:         w.now().UTC(),
		Limit:       w.conf.Batch(),
		MaxAttempts: w.conf.Attempts(),
		Lease:       w.conf.Lease(),
		Token:       token,
	})
	if err != nil {
		return summary, fmt.Errorf("claim deliveries: %w", err)
	}
	summary.Claimed = len(claimed)

	for _, delivery := range claimed {
		if err := w.process(ctx, delivery, token, &summary); err != nil {
			// 尚未處理的筆數等租約到期後由下一輪接手
			return summary, err
		}
	}
	if summary.Claimed > 0 {
		w.logger.Info("webhook delivery batch finished",
			zap.Int("claimed", summary.Claimed),
			zap.Int("delivered", summary.Delivered),
			zap.Int("retrying", summary.Retrying),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("lost", summary.Lost),
		)
	}
	return summary, nil
}

func (w *DeliveryWorker) process(ctx context.Context, delivery *model.WebhookDelivery, token string, summary *DeliverySummary) (returnedError error) {
	ctx, span, end := w.trace.WithSpan(ctx, string(core.SpanDeliveryAttempt))
	defer func() { end(returnedError) }()
	meta := &core.TraceDeliveryMeta{
		DeliveryID: delivery.ID.Hex(),
		WebhookID:  delivery.WebhookID.Hex(),
		EventType:  delivery.EventType,
		Attempt:    delivery.Attempts + 1,
	}
	defer func() { w.trace.ApplyTraceAttributes(span, meta) }()

	// 寫回不受呼叫端取消影響
	persistCtx := context.WithoutCancel(ctx)

	webhook, err := w.webhooks.GetByID(ctx, delivery.WebhookID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		meta.Outcome = "webhook_deleted"
		delivery.Status = core.DeliveryFailed
		delivery.ErrorMessage = errWebhookDeleted
		delivery.NextAttemptAt = w.now().UTC()
		saved := false
		if err := w.save(persistCtx, delivery, token, summary, func() { summary.Failed++; saved = true }); err != nil {
			return err
		}
		if saved {
			// webhook 已刪除，只剩 id 與 owner 可供通知
			w.notifier.DeliveryFailed(persistCtx, &model.Webhook{ID: delivery.WebhookID, OwnerID: delivery.OwnerID}, delivery)
		}
		return nil
	case err != nil:
		meta.Outcome = "lookup_error"
		w.logger.Error("load webhook failed", zap.String("deliveryID", meta.DeliveryID), zap.Error(err))
		return w.release(persistCtx, delivery, token, w.now().UTC(), summary)
	case !webhook.IsActive:
		meta.Outcome = "skipped"
		return w.release(persistCtx, delivery, token, w.now().UTC().Add(w.conf.SkipDeferral()), summary)
	}

	// 每筆 POST 前重新延長租約，批次後段的紀錄在等待期間可能已被其他 worker 接手
	if err := w.deliveries.Renew(persistCtx, delivery.ID, token, w.now().UTC().Add(w.conf.Lease())); err != nil {
		if errors.Is(err, store.ErrClaimLost) || errors.Is(err, store.ErrNotFound) {
			meta.Outcome = "lost"
			summary.Lost++
			w.logger.Warn("delivery claim lost before attempt", zap.String("deliveryID", meta.DeliveryID))
			return nil
		}
		return fmt.Errorf("renew delivery %s: %w", meta.DeliveryID, err)
	}

	result := w.deliver(ctx, webhook, delivery)
	delivery.Attempts++
	delivery.LatencyMs = result.latency.Milliseconds()
	delivery.HTTPStatus = result.status
	delivery.ResponseBody = result.body
	delivery.ErrorMessage = result.errMsg
	now := w.now().UTC()
	delivery.NextAttemptAt = now
	meta.StatusCode = result.status
	meta.LatencyMs = delivery.LatencyMs

	var count func()
	switch {
	case result.ok():
		delivery.Status = core.DeliveryDelivered
		delivery.DeliveredAt = &now
		delivery.ErrorMessage = ""
		meta.Outcome = "delivered"
		count = func() { summary.Delivered++ }
	case delivery.Attempts >= w.conf.Attempts():
		delivery.Status = core.DeliveryFailed
		meta.Outcome = "failed"
		count = func() { summary.Failed++ }
	default:
		meta.Outcome = "retrying"
		count = func() { summary.Retrying++ }
	}
	w.metric.ObserveDeliveryAttempt(meta.Outcome, result.latency)

	if err := w.save(persistCtx, delivery, token, summary, count); err != nil {
		return err
	}
	w.shipAttempt(persistCtx, delivery)
	if delivery.Status == core.DeliveryFailed {
		w.notifier.DeliveryFailed(persistCtx, webhook, delivery)
	}
	return nil
}

// save ErrClaimLost 代表租約已被他人接手，本次結果作廢但不中斷批次
func (w *DeliveryWorker) save(ctx context.Context, delivery *model.WebhookDelivery, token string, summary *DeliverySummary, count func()) error {
	err := w.deliveries.SaveOutcome(ctx, delivery, token)
	if errors.Is(err, store.ErrClaimLost) || errors.Is(err, store.ErrNotFound) {
		summary.Lost++
		w.logger.Warn("delivery claim lost", zap.String("deliveryID", delivery.ID.Hex()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("save delivery %s: %w", delivery.ID.Hex(), err)
	}
	count()
	return nil
}

func (w *DeliveryWorker) release(ctx context.Context, delivery *model.WebhookDelivery, token string, next time.Time, summary *DeliverySummary) error {
	err := w.deliveries.Release(ctx, delivery.ID, token, next)
	if errors.Is(err, store.ErrClaimLost) || errors.Is(err, store.ErrNotFound) {
		summary.Lost++
		return nil
	}
	if err != nil {
		return fmt.Errorf("release delivery %s: %w", delivery.ID.Hex(), err)
	}
	summary.Skipped++
	return nil
}

type attemptResult struct {
	status  int
	body    string
	errMsg  string
	latency time.Duration
}

func (r attemptResult) ok() bool {
	return r.errMsg == "" && r.status >= 200 && r.status < 300
}

// deliver 簽章對象是儲存時的原始 payload bytes
func (w *DeliveryWorker) deliver(ctx context.Context, webhook *model.Webhook, delivery *model.WebhookDelivery) attemptResult {
	ctx, cancel := context.WithTimeout(ctx, w.conf.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return attemptResult{errMsg: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "fingate-webhooks/"+w.version)
	req.Header.Set(core.HeaderWebhookSignature, signature.Header(webhook.Secret, delivery.Payload))
	req.Header.Set(core.HeaderWebhookEvent, delivery.EventType)
	req.Header.Set(core.HeaderWebhookDelivery, delivery.ID.Hex())

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		result := attemptResult{latency: time.Since(start), errMsg: err.Error()}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.errMsg = fmt.Sprintf("timeout after %s", w.conf.Timeout())
		}
		return result
	}
	defer resp.Body.Close()

	limit := int64(w.conf.BodyLimit())
	// 回應內容只保留前段，讀取錯誤不影響狀態碼判定
	body, _ := io.ReadAll(io.LimitReader(resp.Body, limit))
	result := attemptResult{status: resp.StatusCode, body: string(body), latency: time.Since(start)}
	if result.status < 200 || result.status >= 300 {
		result.errMsg = fmt.Sprintf("subscriber responded %d", result.status)
	}
	return result
}

func (w *DeliveryWorker) shipAttempt(ctx context.Context, delivery *model.WebhookDelivery) {
	if w.logRepo == nil {
		return
	}
	err := w.logRepo.LogDelivery(ctx, fluentdModel.DeliveryLog{
		DeliveryID:   delivery.ID.Hex(),
		WebhookID:    delivery.WebhookID.Hex(),
		OwnerID:      delivery.OwnerID,
		EventType:    delivery.EventType,
		Attempt:      delivery.Attempts,
		Status:       string(delivery.Status),
		HTTPStatus:   delivery.HTTPStatus,
		ErrorMessage: delivery.ErrorMessage,
		LatencyMs:    delivery.LatencyMs,
	})
	if err != nil {
		w.logger.Warn("ship delivery log failed", zap.String("deliveryID", delivery.ID.Hex()), zap.Error(err))
	}
}
