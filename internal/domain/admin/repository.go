package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, role *Role) ([]*Admin, error)
}
