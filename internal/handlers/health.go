package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/services"
)

type HealthHandler struct {
	logger        *logrus.Logger
	healthService *services.HealthService
	version       string
}

func NewHealthHandler(logger *logrus.Logger, healthService *services.HealthService, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
		version:       cfg.App.Version,
	}
}

// Check serves the load-balancer probe. The body keeps the compact
// three-field shape; the status code carries the verdict.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())

	c.JSON(httpStatusFor(status.Status), gin.H{
		"status":    status.Status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
	})
}

// Detailed serves the full per-dependency breakdown.
func (h *HealthHandler) Detailed(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())
	c.JSON(httpStatusFor(status.Status), status)
}

func httpStatusFor(status string) int {
	switch status {
	case "healthy":
		return http.StatusOK
	case "degraded":
		return http.StatusOK // Still operational
	case "unhealthy":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
