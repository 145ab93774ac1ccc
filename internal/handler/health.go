package handler

import (
	"net/http"

	"fingate/config"
	"fingate/internal/service"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthStatus *service.HealthService
	name         string
	version      string
}

func NewHealthHandler(status *service.HealthService, conf *config.Configuration) *HealthHandler {
	return &HealthHandler{
		healthStatus: status,
		name:         conf.App.Name,
		version:      conf.App.Version,
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	if h.healthStatus.IsLive() {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
		return
	}
	c.Status(http.StatusServiceUnavailable)
}

// Readiness 服務啟動完成且所有依賴可連線才回 200
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks, ok := h.healthStatus.CheckReadiness(c.Request.Context())
	if ok && h.healthStatus.IsReady() {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
}

func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": h.name, "version": h.version})
}
