package models

import (
	"time"

	"github.com/google/uuid"
)

type SecurityEvaluationModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID          uuid.UUID `gorm:"type:uuid;not null;index:idx_security_eval_device_time,priority:1"`
	Category          string    `gorm:"type:varchar(32);not null"`
	RootStatusMatches bool      `gorm:"not null"`
	BootloaderLocked  bool      `gorm:"not null"`
	AttestationPassed bool      `gorm:"not null"`
	Passed            bool      `gorm:"not null"`
	Reason            string    `gorm:"type:varchar(255)"`
	EvaluatedAt       time.Time `gorm:"not null;index:idx_security_eval_device_time,priority:2"`
}

func (SecurityEvaluationModel) TableName() string {
	return "security_evaluations"
}
