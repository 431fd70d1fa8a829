package auth

import (
	"time"

	domainAdmin "device-finance-backoffice/internal/domain/admin"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
	BankName string `json:"bank_name" validate:"omitempty,max=255"`
}

type SetAdminStatusRequest struct {
	Status domainAdmin.Status `json:"status" validate:"required,oneof=active suspended"`
}

type AdminResponse struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	BankName    string             `json:"bank_name,omitempty"`
	Role        domainAdmin.Role   `json:"role"`
	Status      domainAdmin.Status `json:"status"`
	LastLoginAt *time.Time         `json:"last_login_at"`
	CreatedAt   time.Time          `json:"created_at"`
}

type LoginResponse struct {
	Admin       *AdminResponse `json:"admin"`
	AccessToken string         `json:"access_token"`
	ExpiresAt   int64          `json:"expires_at"`
}

func ToAdminResponse(a *domainAdmin.Admin) *AdminResponse {
	if a == nil {
		return nil
	}
	return &AdminResponse{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		BankName:    a.BankName,
		Role:        a.Role,
		Status:      a.Status,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
