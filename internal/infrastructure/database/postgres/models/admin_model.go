package models

import (
	"time"

	"github.com/google/uuid"
)

type AdminModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name           string    `gorm:"type:varchar(255);not null"`
	BankName       string    `gorm:"type:varchar(255)"`
	Role           string    `gorm:"type:varchar(20);not null;index"`
	Status         string    `gorm:"type:varchar(20);not null;default:'active'"`
	PasswordHashed string    `gorm:"type:varchar(255);not null"`
	LastLoginAt    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (AdminModel) TableName() string {
	return "admins"
}
