package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// CreatePlan persists the plan and its installments atomically. A second
	// open plan for the same code yields ErrScheduleExists.
	CreatePlan(ctx context.Context, plan *Plan, installments []*Installment) error
	HasOpenInstallments(ctx context.Context, codeID uuid.UUID) (bool, error)
	GetInstallment(ctx context.Context, id uuid.UUID) (*Installment, error)
	// CompleteInstallment fails with ErrAlreadyCompleted if another caller won the update.
	CompleteInstallment(ctx context.Context, id uuid.UUID, paid decimal.Decimal, at time.Time) error
	// CompletePlanIfSettled flips the plan's completed flag exactly once, when no
	// installment of the plan remains uncompleted. It reports whether this call flipped it.
	CompletePlanIfSettled(ctx context.Context, planID uuid.UUID, at time.Time) (bool, error)
	ListInstallmentsByCode(ctx context.Context, codeID uuid.UUID) ([]*Installment, error)
}
