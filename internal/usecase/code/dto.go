package code

import (
	"time"

	domainCode "device-finance-backoffice/internal/domain/code"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GenerateCodesRequest struct {
	Quantity int             `json:"quantity" validate:"max=10000"`
	Price    decimal.Decimal `json:"price"`
}

type SellCodeRequest struct {
	BuyerID uuid.UUID `json:"buyer_id" validate:"required"`
}

type CodeFilterRequest struct {
	Status   *domainCode.Status `form:"status" validate:"omitempty,oneof=available sold activated"`
	Page     int                `form:"page" validate:"omitempty,min=1"`
	PageSize int                `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type CodeResponse struct {
	ID          uuid.UUID         `json:"id"`
	Code        string            `json:"code"`
	Price       decimal.Decimal   `json:"price"`
	Status      domainCode.Status `json:"status"`
	SoldTo      *uuid.UUID        `json:"sold_to,omitempty"`
	SoldAt      *time.Time        `json:"sold_at,omitempty"`
	ActivatedAt *time.Time        `json:"activated_at,omitempty"`
	LockReason  *string           `json:"lock_reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type CodeListResponse struct {
	Codes      []CodeResponse `json:"codes"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

func ToCodeResponse(c *domainCode.DeviceCode) *CodeResponse {
	if c == nil {
		return nil
	}
	return &CodeResponse{
		ID:          c.ID,
		Code:        c.Code,
		Price:       c.Price,
		Status:      c.Status,
		SoldTo:      c.SoldTo,
		SoldAt:      c.SoldAt,
		ActivatedAt: c.ActivatedAt,
		LockReason:  c.LockReason,
		CreatedAt:   c.CreatedAt,
	}
}
