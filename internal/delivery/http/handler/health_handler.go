package handler

import (
	"context"
	"device-finance-backoffice/pkg/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	if status != http.StatusOK {
		c.JSON(status, utils.Response{
			Success: false,
			Data:    gin.H{"status": "degraded", "checks": results},
			Error:   &utils.ErrorBody{Code: "SERVICE_UNAVAILABLE", Message: "One or more dependencies are unhealthy"},
		})
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Service is healthy", gin.H{"status": "ok", "checks": results})
}
