package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentPlanModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DeviceCodeID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	InstallmentCount int             `gorm:"not null"`
	CompletedAt      *time.Time
	CreatedBy        string    `gorm:"type:varchar(100)"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (PaymentPlanModel) TableName() string {
	return "payment_plans"
}

type PaymentInstallmentModel struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PlanID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_installment_plan_seq"`
	DeviceCodeID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Sequence     int                 `gorm:"not null;uniqueIndex:idx_installment_plan_seq"`
	Amount       decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	DueDate      time.Time           `gorm:"not null;index"`
	Status       string              `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAmount   decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	PaidDate     *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (PaymentInstallmentModel) TableName() string {
	return "payment_installments"
}
