package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan groups the installments created by one schedule for a code.
type Plan struct {
	ID               uuid.UUID
	DeviceCodeID     uuid.UUID
	TotalAmount      decimal.Decimal
	InstallmentCount int
	CompletedAt      *time.Time
	CreatedBy        string
	CreatedAt        time.Time
}

func (p *Plan) IsCompleted() bool {
	return p.CompletedAt != nil
}

type Installment struct {
	ID           uuid.UUID
	PlanID       uuid.UUID
	DeviceCodeID uuid.UUID
	Sequence     int
	Amount       decimal.Decimal
	DueDate      time.Time
	Status       Status
	PaidAmount   *decimal.Decimal
	PaidDate     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (i *Installment) IsCompleted() bool {
	return i.Status == StatusCompleted
}

// IsOverdue is true for a pending installment whose due date is strictly before now.
func (i *Installment) IsOverdue(now time.Time) bool {
	return i.Status == StatusPending && i.DueDate.Before(now)
}

// Summary aggregates all installments of a code.
type Summary struct {
	TotalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	NextDueDate     *time.Time
	HasOverdue      bool
	Installments    int
	Completed       int
}

func Summarize(installments []*Installment, now time.Time) Summary {
	s := Summary{
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
	}

	for _, inst := range installments {
		s.Installments++
		s.TotalAmount = s.TotalAmount.Add(inst.Amount)

		if inst.IsCompleted() {
			s.Completed++
			s.PaidAmount = s.PaidAmount.Add(inst.Amount)
			continue
		}

		if inst.Status != StatusPending {
			continue
		}
		if inst.IsOverdue(now) {
			s.HasOverdue = true
		}
		if s.NextDueDate == nil || inst.DueDate.Before(*s.NextDueDate) {
			due := inst.DueDate
			s.NextDueDate = &due
		}
	}

	s.RemainingAmount = s.TotalAmount.Sub(s.PaidAmount)
	return s
}
