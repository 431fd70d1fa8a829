package payment

import (
	"time"

	domainPayment "device-finance-backoffice/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateScheduleRequest struct {
	CodeID           uuid.UUID       `json:"code_id" validate:"required"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count" validate:"max=120"`
}

type ProcessPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type InstallmentResponse struct {
	ID           uuid.UUID            `json:"id"`
	PlanID       uuid.UUID            `json:"plan_id"`
	DeviceCodeID uuid.UUID            `json:"device_code_id"`
	Sequence     int                  `json:"sequence"`
	Amount       decimal.Decimal      `json:"amount"`
	DueDate      time.Time            `json:"due_date"`
	Status       domainPayment.Status `json:"status"`
	PaidAmount   *decimal.Decimal     `json:"paid_amount,omitempty"`
	PaidDate     *time.Time           `json:"paid_date,omitempty"`
}

type ScheduleResponse struct {
	PlanID       uuid.UUID             `json:"plan_id"`
	DeviceCodeID uuid.UUID             `json:"device_code_id"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	Installments []InstallmentResponse `json:"installments"`
}

type ProcessPaymentResponse struct {
	Installment   InstallmentResponse `json:"installment"`
	PlanCompleted bool                `json:"plan_completed"`
}

type PaymentStatusResponse struct {
	DeviceCodeID    uuid.UUID       `json:"device_code_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	NextDueDate     *time.Time      `json:"next_due_date"`
	HasOverdue      bool            `json:"has_overdue"`
	IsLocked        bool            `json:"is_locked"`
	Installments    int             `json:"installments"`
	Completed       int             `json:"completed"`
}

func ToInstallmentResponse(i *domainPayment.Installment) *InstallmentResponse {
	if i == nil {
		return nil
	}
	return &InstallmentResponse{
		ID:           i.ID,
		PlanID:       i.PlanID,
		DeviceCodeID: i.DeviceCodeID,
		Sequence:     i.Sequence,
		Amount:       i.Amount,
		DueDate:      i.DueDate,
		Status:       i.Status,
		PaidAmount:   i.PaidAmount,
		PaidDate:     i.PaidDate,
	}
}

func toStatusResponse(codeID uuid.UUID, s domainPayment.Summary, locked bool) *PaymentStatusResponse {
	return &PaymentStatusResponse{
		DeviceCodeID:    codeID,
		TotalAmount:     s.TotalAmount,
		PaidAmount:      s.PaidAmount,
		RemainingAmount: s.RemainingAmount,
		NextDueDate:     s.NextDueDate,
		HasOverdue:      s.HasOverdue,
		IsLocked:        locked,
		Installments:    s.Installments,
		Completed:       s.Completed,
	}
}
