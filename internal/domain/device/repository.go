package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for device repository operations
type Repository interface {
	// Create fails with ErrDeviceAlreadyRegistered when the hardware id or the code is already taken.
	Create(ctx context.Context, device *Device) error
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	GetByCodeID(ctx context.Context, codeID uuid.UUID) (*Device, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, reason *string, at time.Time) error
	// TransitionFrom writes the new status only if the stored status still equals from.
	TransitionFrom(ctx context.Context, id uuid.UUID, from, to Status, reason *string, at time.Time) (bool, error)
	// LockIfOverdue locks the device only if, at write time, it is not locked and
	// its code has a pending installment due strictly before now.
	LockIfOverdue(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	List(ctx context.Context, filter *Filter) ([]*Device, int64, error)
}

// PresenceTracker records device check-ins outside the relational store.
type PresenceTracker interface {
	Touch(ctx context.Context, deviceID string, at time.Time) error
	LastSeen(ctx context.Context, deviceID string) (*time.Time, error)
	Window() time.Duration
}

// Filter represents filtering options for listing devices
type Filter struct {
	Status   *Status
	SoldTo   *uuid.UUID
	Search   string
	Page     int
	PageSize int
}
