package device

import (
	"time"

	"github.com/google/uuid"
)

// Device is an end-user handset financed against exactly one device code.
type Device struct {
	ID              uuid.UUID
	DeviceID        string
	Model           string
	Manufacturer    string
	OSVersion       string
	IMEI            string
	IsRooted        bool
	DeviceCodeID    uuid.UUID
	Status          Status
	LockReason      *string
	StatusChangedAt time.Time
	LastSeenAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Status string

const (
	StatusActive   Status = "active"
	StatusLocked   Status = "locked"
	StatusUnlocked Status = "unlocked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusLocked, StatusUnlocked:
		return true
	}
	return false
}

func (d *Device) IsLocked() bool {
	return d.Status == StatusLocked
}

// IsUsable reports whether the device may operate normally.
func (d *Device) IsUsable() bool {
	return d.Status == StatusActive || d.Status == StatusUnlocked
}

// IsOnline checks if the device checked in within the given window.
func (d *Device) IsOnline(now time.Time, window time.Duration) bool {
	if d.LastSeenAt == nil {
		return false
	}
	return now.Sub(*d.LastSeenAt) < window
}

const (
	ReasonPaymentOverdue = "payment overdue"
)
