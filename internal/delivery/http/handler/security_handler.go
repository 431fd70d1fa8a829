package handler

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/usecase/security"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type SecurityService interface {
	Evaluate(ctx context.Context, a actor.Actor, deviceID string, req *security.EvaluateRequest) (*security.EvaluationResponse, error)
	Latest(ctx context.Context, deviceID string) (*security.EvaluationResponse, error)
}

type SecurityHandler struct {
	service SecurityService
}

func NewSecurityHandler(service SecurityService) *SecurityHandler {
	return &SecurityHandler{service: service}
}

func (h *SecurityHandler) RegisterDeviceRoutes(router *gin.RouterGroup) {
	router.POST("/devices/:deviceId/security-check", h.SecurityCheck)
}

func (h *SecurityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/devices/:deviceId/security-check", h.LatestEvaluation)
}

func (h *SecurityHandler) SecurityCheck(c *gin.Context) {
	var req security.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	deviceID := c.Param("deviceId")
	result, err := h.service.Evaluate(c.Request.Context(), actor.Device(deviceID), deviceID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// A failed check is a valid evaluation; the body carries the outcome.
	utils.SuccessResponse(c, http.StatusOK, "Security evaluation recorded", result)
}

func (h *SecurityHandler) LatestEvaluation(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}

	result, err := h.service.Latest(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Latest security evaluation", result)
}
