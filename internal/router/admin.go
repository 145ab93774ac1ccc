package router

import (
	"fingate/internal/handler"
	"fingate/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AdminRouter struct {
	apiKeyHandler   *handler.APIKeyHandler
	webhookHandler  *handler.WebhookHandler
	eventHandler    *handler.EventHandler
	ownerMiddleware *middleware.Owner
}

func NewAdminRouter(
	apiKeyHandler *handler.APIKeyHandler,
	webhookHandler *handler.WebhookHandler,
	eventHandler *handler.EventHandler,
	ownerMiddleware *middleware.Owner,
) *AdminRouter {
	return &AdminRouter{
		apiKeyHandler:   apiKeyHandler,
		webhookHandler:  webhookHandler,
		eventHandler:    eventHandler,
		ownerMiddleware: ownerMiddleware,
	}
}

func (ar *AdminRouter) RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(ar.ownerMiddleware.Handler())

	keys := admin.Group("/api-keys")
	{
		keys.GET("", ar.apiKeyHandler.List)
		keys.POST("", ar.apiKeyHandler.Create)
		keys.GET("/:keyID", ar.apiKeyHandler.Get)
		keys.PUT("/:keyID/active", ar.apiKeyHandler.SetActive)
		keys.DELETE("/:keyID", ar.apiKeyHandler.Delete)
	}

	webhooks := admin.Group("/webhooks")
	{
		webhooks.GET("", ar.webhookHandler.List)
		webhooks.POST("", ar.webhookHandler.Create)
		webhooks.GET("/:webhookID", ar.webhookHandler.Get)
		webhooks.PATCH("/:webhookID", ar.webhookHandler.Update)
		webhooks.DELETE("/:webhookID", ar.webhookHandler.Delete)
		webhooks.POST("/:webhookID/rotate-secret", ar.webhookHandler.RotateSecret)
		webhooks.GET("/:webhookID/deliveries", ar.webhookHandler.ListDeliveries)
	}

	admin.POST("/events", ar.eventHandler.Emit)
	admin.POST("/deliveries/:deliveryID/retry", ar.eventHandler.Retry)
}
