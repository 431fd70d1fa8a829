package handler

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/usecase/auth"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthService interface {
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error)
	CreateAdmin(ctx context.Context, a actor.Actor, req *auth.CreateAdminRequest) (*auth.AdminResponse, error)
	ListAdmins(ctx context.Context, a actor.Actor) ([]*auth.AdminResponse, error)
	SetAdminStatus(ctx context.Context, a actor.Actor, id uuid.UUID, req *auth.SetAdminStatusRequest) (*auth.AdminResponse, error)
}

type AuthHandler struct {
	service AuthService
}

func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/login", h.Login)
}

// RegisterAdminRoutes mounts account management under a super_admin group.
func (h *AuthHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	admins := router.Group("/admins")
	{
		admins.POST("", h.CreateAdmin)
		admins.GET("", h.ListAdmins)
		admins.PATCH("/:id/status", h.SetAdminStatus)
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Login successful", resp)
}

func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	var req auth.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	admin, err := h.service.CreateAdmin(c.Request.Context(), a, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Admin created successfully", admin)
}

func (h *AuthHandler) ListAdmins(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	admins, err := h.service.ListAdmins(c.Request.Context(), a)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Admins retrieved successfully", admins)
}

func (h *AuthHandler) SetAdminStatus(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid admin ID")
		return
	}

	var req auth.SetAdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	admin, err := h.service.SetAdminStatus(c.Request.Context(), a, id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Admin status updated", admin)
}
