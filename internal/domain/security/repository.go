package security

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Save(ctx context.Context, evaluation *Evaluation) error
	// Latest returns ErrEvaluationNotFound when the device was never evaluated.
	Latest(ctx context.Context, deviceID uuid.UUID) (*Evaluation, error)
}
