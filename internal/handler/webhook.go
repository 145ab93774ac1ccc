package handler

import (
	"fingate/internal/dto"
	"fingate/internal/middleware"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/response"
	"fingate/internal/service"
	"fingate/internal/telemetry"
	"fingate/utils/validate"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	trace          *telemetry.Trace
	webhookService *service.WebhookService
}

func NewWebhookHandler(trace *telemetry.Trace, webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		trace:          trace,
		webhookService: webhookService,
	}
}

// Create 註冊 webhook，secret 只回傳這一次
// @Summary 註冊 Webhook
// @Tags Webhook
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateWebhookDto true "webhook"
// @Success 200 {object} response.Response{data=dto.WebhookSecretResponseDto}
// @Failure 400 {object} response.Response
// @Router /admin/webhooks [post]
func (h *WebhookHandler) Create(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	var req dto.CreateWebhookDto
	if err, respErr := validate.BindAndValidate(c, &req); respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.webhookService.Create(ctx, middleware.OwnerFrom(c), &req)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// List
// @Summary 列出 Webhook
// @Tags Webhook
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]dto.WebhookResponseDto}
// @Router /admin/webhooks [get]
func (h *WebhookHandler) List(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	result, err := h.webhookService.List(ctx, middleware.OwnerFrom(c))
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Get
// @Summary 取得 Webhook
// @Tags Webhook
// @Security BearerAuth
// @Produce json
// @Param webhookID path string true "Webhook ID"
// @Success 200 {object} response.Response{data=dto.WebhookResponseDto}
// @Failure 404 {object} response.Response
// @Router /admin/webhooks/{webhookID} [get]
func (h *WebhookHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "webhookID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.webhookService.Get(ctx, middleware.OwnerFrom(c), id)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Update 部分更新 url、events、isActive
// @Summary 更新 Webhook
// @Tags Webhook
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param webhookID path string true "Webhook ID"
// @Param request body dto.UpdateWebhookDto true "fields to update"
// @Success 200 {object} response.Response{data=dto.WebhookResponseDto}
// @Failure 404 {object} response.Response
// @Router /admin/webhooks/{webhookID} [patch]
func (h *WebhookHandler) Update(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "webhookID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	var req dto.UpdateWebhookDto
	if err, respErr := validate.BindAndValidate(c, &req); respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.webhookService.Update(ctx, middleware.OwnerFrom(c), id, &req)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// RotateSecret
// @Summary 輪替 Webhook secret
// @Tags Webhook
// @Security BearerAuth
// @Produce json
// @Param webhookID path string true "Webhook ID"
// @Success 200 {object} response.Response{data=dto.WebhookSecretResponseDto}
// @Failure 404 {object} response.Response
// @Router /admin/webhooks/{webhookID}/rotate-secret [post]
func (h *WebhookHandler) RotateSecret(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "webhookID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.webhookService.RotateSecret(ctx, middleware.OwnerFrom(c), id)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Delete 刪除 webhook，既有的投遞紀錄保留
// @Summary 刪除 Webhook
// @Tags Webhook
// @Security BearerAuth
// @Produce json
// @Param webhookID path string true "Webhook ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/webhooks/{webhookID} [delete]
func (h *WebhookHandler) Delete(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "webhookID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	if err := h.webhookService.Delete(ctx, middleware.OwnerFrom(c), id); err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListDeliveries 最近的投遞紀錄
// @Summary 列出 Webhook 投遞紀錄
// @Tags Webhook
// @Security BearerAuth
// @Produce json
// @Param webhookID path string true "Webhook ID"
// @Param limit query int false "筆數上限（預設且最多 100）"
// @Success 200 {object} response.Response{data=[]dto.DeliveryResponseDto}
// @Failure 404 {object} response.Response
// @Router /admin/webhooks/{webhookID}/deliveries [get]
func (h *WebhookHandler) ListDeliveries(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "webhookID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	limit, err := validate.GetInt64Query(c, "limit", 0)
	if err != nil {
		cause = err
		response.AbortWithError(c, cErr.ValidateErr("limit must be an integer"))
		return
	}

	result, err := h.webhookService.ListDeliveries(ctx, middleware.OwnerFrom(c), id, int(limit))
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}
