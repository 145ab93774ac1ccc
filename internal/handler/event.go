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

type EventHandler struct {
	trace        *telemetry.Trace
	eventService *service.EventService
}

func NewEventHandler(trace *telemetry.Trace, eventService *service.EventService) *EventHandler {
	return &EventHandler{
		trace:        trace,
		eventService: eventService,
	}
}

// Emit 將事件排入所有訂閱中 webhook 的投遞佇列
// @Summary 發送事件
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.EmitEventDto true "event"
// @Success 200 {object} response.Response{data=dto.EmitEventResponseDto}
// @Failure 400 {object} response.Response
// @Router /admin/events [post]
func (h *EventHandler) Emit(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	var req dto.EmitEventDto
	if err, respErr := validate.BindAndValidate(c, &req); respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.eventService.Emit(ctx, middleware.OwnerFrom(c), req.EventType, req.Payload)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Retry 針對失敗的投遞建立新的 pending 投遞
// @Summary 重試投遞
// @Tags Event
// @Security BearerAuth
// @Produce json
// @Param deliveryID path string true "Delivery ID"
// @Success 200 {object} response.Response{data=dto.DeliveryResponseDto}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/deliveries/{deliveryID}/retry [post]
func (h *EventHandler) Retry(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	id, err, respErr := validate.ParseObjectID(c, "deliveryID")
	if respErr != nil {
		cause = err
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.eventService.Retry(ctx, middleware.OwnerFrom(c), id)
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}
