package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeviceCodeModel represents the database model for device activation codes.
type DeviceCodeModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code        string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status      string          `gorm:"type:varchar(20);not null;default:'available';index"`
	SoldTo      *uuid.UUID      `gorm:"type:uuid;index"`
	SoldAt      *time.Time
	ActivatedAt *time.Time
	LockReason  *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (DeviceCodeModel) TableName() string {
	return "device_codes"
}
