package postgres

import (
	"context"
	domainSecurity "device-finance-backoffice/internal/domain/security"
	"device-finance-backoffice/internal/infrastructure/database/postgres/models"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SecurityRepository struct {
	db *DB
}

func NewSecurityRepository(db *DB) domainSecurity.Repository {
	return &SecurityRepository{db: db}
}

func (r *SecurityRepository) Save(ctx context.Context, e *domainSecurity.Evaluation) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := r.db.conn(ctx).Create(toEvaluationModel(e)).Error; err != nil {
		return fmt.Errorf("failed to save security evaluation: %w", err)
	}
	return nil
}

func (r *SecurityRepository) Latest(ctx context.Context, deviceID uuid.UUID) (*domainSecurity.Evaluation, error) {
	var dbModel models.SecurityEvaluationModel
	err := r.db.conn(ctx).
		Where("device_id = ?", deviceID).
		Order("evaluated_at DESC").
		First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainSecurity.ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security evaluation: %w", err)
	}
	return toEvaluationEntity(&dbModel), nil
}

func toEvaluationModel(e *domainSecurity.Evaluation) *models.SecurityEvaluationModel {
	return &models.SecurityEvaluationModel{
		ID:                e.ID,
		DeviceID:          e.DeviceID,
		Category:          string(e.Category),
		RootStatusMatches: e.RootStatusMatches,
		BootloaderLocked:  e.BootloaderLocked,
		AttestationPassed: e.AttestationPassed,
		Passed:            e.Passed,
		Reason:            e.Reason,
		EvaluatedAt:       e.EvaluatedAt,
	}
}

func toEvaluationEntity(m *models.SecurityEvaluationModel) *domainSecurity.Evaluation {
	return &domainSecurity.Evaluation{
		ID:                m.ID,
		DeviceID:          m.DeviceID,
		Category:          domainSecurity.Category(m.Category),
		RootStatusMatches: m.RootStatusMatches,
		BootloaderLocked:  m.BootloaderLocked,
		AttestationPassed: m.AttestationPassed,
		Passed:            m.Passed,
		Reason:            m.Reason,
		EvaluatedAt:       m.EvaluatedAt,
	}
}
