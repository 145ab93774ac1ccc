package router

import (
	"fingate/internal/handler"
	"fingate/internal/middleware"

	"github.com/gin-gonic/gin"
)

type GatewayRouter struct {
	gatewayHandler      *handler.GatewayHandler
	usageMiddleware     *middleware.Usage
	apiKeyMiddleware    *middleware.APIKey
	ratelimitMiddleware *middleware.RateLimit
}

func NewGatewayRouter(
	gatewayHandler *handler.GatewayHandler,
	usageMiddleware *middleware.Usage,
	apiKeyMiddleware *middleware.APIKey,
	ratelimitMiddleware *middleware.RateLimit,
) *GatewayRouter {
	return &GatewayRouter{
		gatewayHandler:      gatewayHandler,
		usageMiddleware:     usageMiddleware,
		apiKeyMiddleware:    apiKeyMiddleware,
		ratelimitMiddleware: ratelimitMiddleware,
	}
}

// RegisterRoutes usage 必須在最外層，驗證失敗與被限流的請求也要記錄
func (gatewayRouter *GatewayRouter) RegisterRoutes(engine *gin.Engine) {
	router := engine.Group("/v1")
	router.Use(gatewayRouter.usageMiddleware.Recorder())
	router.Use(gatewayRouter.apiKeyMiddleware.Handler())
	router.Use(gatewayRouter.ratelimitMiddleware.Guard())

	router.Any("/*route", gatewayRouter.gatewayHandler.Handle)
}
