package handler

import (
	"fingate/internal/dto"
	"fingate/internal/middleware"
	"fingate/internal/pkg/response"
	"fingate/internal/service"
	"fingate/internal/telemetry"
	"fingate/utils/validate"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	trace         *telemetry.Trace
	apiKeyService *service.APIKeyService
}

func NewAPIKeyHandler(trace *telemetry.Trace, apiKeyService *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{
		trace:         trace,
		apiKeyService: apiKeyService,
	}
}

// Create 建立 API Key，明文只回傳這一次
// @Summary 建立 API Key
// @Tags APIKey
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAPIKeyDto true "API key"
// @Success 200 {object} response.Response{data=dto.CreatedAPIKeyResponseDto}
// @Failure 400 {object} response.Response
// @Router /admin/api-keys [post]
func (h *APIKeyHandler) Create(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	var req dto.CreateAPIKeyDto
	if err, respErr := validate.BindAndValidate(c, &req); respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.apiKeyService.Create(ctx, middleware.OwnerFrom(c), &req)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// List 列出 owner 的 API Key
// @Summary 列出 API Key
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]dto.APIKeyResponseDto}
// @Router /admin/api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	result, err := h.apiKeyService.List(ctx, middleware.OwnerFrom(c))
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Get
// @Summary 取得 API Key
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Param keyID path string true "API key ID"
// @Success 200 {object} response.Response{data=dto.APIKeyResponseDto}
// @Failure 404 {object} response.Response
// @Router /admin/api-keys/{keyID} [get]
func (h *APIKeyHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "keyID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.apiKeyService.Get(ctx, middleware.OwnerFrom(c), id)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// SetActive 啟用或停用 API Key
// @Summary 啟用/停用 API Key
// @Tags APIKey
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param keyID path string true "API key ID"
// @Param request body dto.SetAPIKeyActiveDto true "active flag"
// @Success 200 {object} response.Response{data=dto.APIKeyResponseDto}
// @Failure 404 {object} response.Response
// @Router /admin/api-keys/{keyID}/active [put]
func (h *APIKeyHandler) SetActive(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "keyID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	var req dto.SetAPIKeyActiveDto
	if err, respErr := validate.BindAndValidate(c, &req); respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.apiKeyService.SetActive(ctx, middleware.OwnerFrom(c), id, *req.IsActive)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Delete
// @Summary 刪除 API Key
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Param keyID path string true "API key ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/api-keys/{keyID} [delete]
func (h *APIKeyHandler) Delete(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "keyID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	if err := h.apiKeyService.Delete(ctx, middleware.OwnerFrom(c), id); err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, nil)
}
