package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel represents the database model for Devices.
type DeviceModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID        string    `gorm:"type:varchar(128);not null;uniqueIndex"`
	Model           string    `gorm:"type:varchar(255)"`
	Manufacturer    string    `gorm:"type:varchar(255)"`
	OSVersion       string    `gorm:"column:os_version;type:varchar(64)"`
	IMEI            string    `gorm:"column:imei;type:varchar(32)"`
	IsRooted        bool      `gorm:"not null;default:false"`
	DeviceCodeID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Status          string    `gorm:"type:varchar(20);not null;default:'active';index"`
	LockReason      *string   `gorm:"type:text"`
	StatusChangedAt time.Time `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}
