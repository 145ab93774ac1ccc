package router

import (
	"fingate/internal/handler"

	"github.com/gin-gonic/gin"
)

// HealthRouter 探針與版本資訊，不經過 API Key 驗證
type HealthRouter struct {
	health *handler.HealthHandler
}

func NewHealthRouter(health *handler.HealthHandler) *HealthRouter {
	return &HealthRouter{health: health}
}

func (r *HealthRouter) RegisterHealthRoutes(engine *gin.Engine) {
	// /health-check 保留給既有的負載平衡器設定
	engine.GET("/health-check", r.health.Liveness)
	engine.GET("/version", r.health.Version)

	probes := engine.Group("/health")
	probes.GET("/liveness", r.health.Liveness)
	probes.GET("/readiness", r.health.Readiness)
}
