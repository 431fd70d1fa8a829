package code

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for device codes.
type Repository interface {
	// CreateBatch persists all codes or none. A unique violation yields ErrDuplicateCode.
	CreateBatch(ctx context.Context, codes []*DeviceCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*DeviceCode, error)
	GetByCode(ctx context.Context, code string) (*DeviceCode, error)
	// MarkSold moves available -> sold only if the code is still available at write time.
	MarkSold(ctx context.Context, id uuid.UUID, buyerID uuid.UUID, at time.Time) error
	// MarkActivated moves sold -> activated only if the code is still sold at write time.
	MarkActivated(ctx context.Context, id uuid.UUID, at time.Time) error
	SetLockReason(ctx context.Context, id uuid.UUID, reason *string) error
	List(ctx context.Context, filter *Filter) ([]*DeviceCode, int64, error)
}

type Filter struct {
	Status   *Status
	SoldTo   *uuid.UUID
	Page     int
	PageSize int
}
