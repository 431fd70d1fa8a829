package handler

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/usecase/payment"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PaymentService interface {
	CreateSchedule(ctx context.Context, a actor.Actor, req *payment.CreateScheduleRequest) (*payment.ScheduleResponse, error)
	ProcessPayment(ctx context.Context, a actor.Actor, installmentID uuid.UUID, req *payment.ProcessPaymentRequest) (*payment.ProcessPaymentResponse, error)
	StatusByCode(ctx context.Context, a actor.Actor, codeID uuid.UUID) (*payment.PaymentStatusResponse, error)
	StatusByDevice(ctx context.Context, a actor.Actor, deviceID string) (*payment.PaymentStatusResponse, error)
	ListInstallments(ctx context.Context, a actor.Actor, codeID uuid.UUID) ([]payment.InstallmentResponse, error)
}

type PaymentHandler struct {
	service PaymentService
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/payments")
	{
		payments.POST("/schedules", h.CreateSchedule)
		payments.POST("/installments/:id/pay", h.ProcessPayment)
		payments.GET("/codes/:codeId", h.StatusByCode)
		payments.GET("/codes/:codeId/installments", h.ListInstallments)
		payments.GET("/devices/:deviceId", h.StatusByDevice)
	}
}

func (h *PaymentHandler) CreateSchedule(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	var req payment.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	schedule, err := h.service.CreateSchedule(c.Request.Context(), a, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Payment schedule created", schedule)
}

func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid installment ID")
		return
	}

	var req payment.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	result, err := h.service.ProcessPayment(c.Request.Context(), a, installmentID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Payment processed", result)
}

func (h *PaymentHandler) StatusByCode(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	codeID, ok := parseCodeID(c)
	if !ok {
		return
	}

	status, err := h.service.StatusByCode(c.Request.Context(), a, codeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Payment status retrieved", status)
}

func (h *PaymentHandler) StatusByDevice(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	status, err := h.service.StatusByDevice(c.Request.Context(), a, c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Payment status retrieved", status)
}

func (h *PaymentHandler) ListInstallments(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	codeID, ok := parseCodeID(c)
	if !ok {
		return
	}

	installments, err := h.service.ListInstallments(c.Request.Context(), a, codeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Installments retrieved", installments)
}

func parseCodeID(c *gin.Context) (uuid.UUID, bool) {
	codeID, err := uuid.Parse(c.Param("codeId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid code ID")
		return uuid.Nil, false
	}
	return codeID, true
}
