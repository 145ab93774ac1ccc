package handler

import (
	"errors"
	"io"
	"net/http"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/middleware"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/response"
	"fingate/internal/service"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type GatewayHandler struct {
	trace          *telemetry.Trace
	gatewayService *service.GatewayService
	maxBodyBytes   int64
}

func NewGatewayHandler(trace *telemetry.Trace, gatewayService *service.GatewayService, conf *config.Configuration) *GatewayHandler {
	return &GatewayHandler{
		trace:          trace,
		gatewayService: gatewayService,
		maxBodyBytes:   conf.Gateway.BodyLimit(),
	}
}

// Handle 將已驗證、已通過限流的請求轉給對應的內部服務
// @Summary 閘道路由
// @Description 路徑對應到固定的內部服務（/reports、/analytics、/tax、/transactions、/forecasts、/chat）；owner 由 API key 決定
// @Tags Gateway
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param route path string true "Route path, e.g. reports"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Failure 504 {object} response.Response
// @Router /v1/{route} [post]
func (h *GatewayHandler) Handle(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	var cause error
	defer func() { end(cause) }()

	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		cause = cErr.MissingCredential("authorization bearer token is required")
		response.AbortWithError(c, cause)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cause = cErr.PayloadTooLarge("request body exceeds the gateway limit")
		} else {
			cause = cErr.BadRequestBody("failed to read request body")
		}
		response.AbortWithError(c, cause)
		return
	}

	result, err := h.gatewayService.Dispatch(ctx, service.DispatchRequest{
		Path:      c.Param("route"),
		Method:    c.Request.Method,
		Body:      body,
		Query:     c.Request.URL.Query(),
		Header:    c.Request.Header,
		Principal: principal,
		RequestID: response.RequestID(c),
	})
	if result != nil {
		c.Set(core.ContextRouteKey, result.Route.Kind)
		c.Set(core.ContextCreditsKey, result.Credits)
		if meta := response.MetaFrom(c); meta != nil {
			meta.CreditsConsumed = result.Credits
		}
	}
	if err != nil {
		cause = err
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result.Data)
}
