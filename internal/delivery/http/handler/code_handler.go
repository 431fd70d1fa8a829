package handler

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/usecase/code"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CodeService interface {
	Generate(ctx context.Context, a actor.Actor, req *code.GenerateCodesRequest) ([]code.CodeResponse, error)
	Sell(ctx context.Context, a actor.Actor, codeID uuid.UUID, req *code.SellCodeRequest) (*code.CodeResponse, error)
	Lookup(ctx context.Context, a actor.Actor, value string) (*code.CodeResponse, error)
	List(ctx context.Context, a actor.Actor, filter *code.CodeFilterRequest) (*code.CodeListResponse, error)
}

type CodeHandler struct {
	service CodeService
}

func NewCodeHandler(service CodeService) *CodeHandler {
	return &CodeHandler{service: service}
}

func (h *CodeHandler) RegisterRoutes(router *gin.RouterGroup) {
	codes := router.Group("/codes")
	{
		codes.GET("", h.ListCodes)
		codes.GET("/:code", h.LookupCode)
	}
}

func (h *CodeHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	codes := router.Group("/codes")
	{
		codes.POST("/generate", h.GenerateCodes)
		codes.POST("/:id/sell", h.SellCode)
	}
}

func (h *CodeHandler) GenerateCodes(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	var req code.GenerateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	codes, err := h.service.Generate(c.Request.Context(), a, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Codes generated successfully", codes)
}

func (h *CodeHandler) SellCode(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid code ID")
		return
	}

	var req code.SellCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	sold, err := h.service.Sell(c.Request.Context(), a, codeID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Code sold successfully", sold)
}

func (h *CodeHandler) LookupCode(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	found, err := h.service.Lookup(c.Request.Context(), a, c.Param("code"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Code retrieved successfully", found)
}

func (h *CodeHandler) ListCodes(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	var filter code.CodeFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	codes, err := h.service.List(c.Request.Context(), a, &filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Codes retrieved successfully", codes)
}
