package postgres

import (
	"context"
	domainCode "device-finance-backoffice/internal/domain/code"
	"device-finance-backoffice/internal/infrastructure/database/postgres/models"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CodeRepository struct {
	db *DB
}

func NewCodeRepository(db *DB) domainCode.Repository {
	return &CodeRepository{db: db}
}

func (r *CodeRepository) CreateBatch(ctx context.Context, codes []*domainCode.DeviceCode) error {
	if len(codes) == 0 {
		return nil
	}

	batch := make([]*models.DeviceCodeModel, len(codes))
	for i, c := range codes {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		batch[i] = toCodeModel(c)
	}

	err := r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(batch, 100).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return domainCode.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create device codes: %w", err)
	}

	return nil
}

func (r *CodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domainCode.DeviceCode, error) {
	var dbModel models.DeviceCodeModel
	err := r.db.conn(ctx).Where("id = ?", id).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainCode.ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}
	return toCodeEntity(&dbModel), nil
}

func (r *CodeRepository) GetByCode(ctx context.Context, code string) (*domainCode.DeviceCode, error) {
	var dbModel models.DeviceCodeModel
	err := r.db.conn(ctx).Where("code = ?", code).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainCode.ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}
	return toCodeEntity(&dbModel), nil
}

func (r *CodeRepository) MarkSold(ctx context.Context, id uuid.UUID, buyerID uuid.UUID, at time.Time) error {
	result := r.db.conn(ctx).
		Model(&models.DeviceCodeModel{}).
		Where("id = ? AND status = ?", id, string(domainCode.StatusAvailable)).
		Updates(map[string]interface{}{
			"status":     string(domainCode.StatusSold),
			"sold_to":    buyerID,
			"sold_at":    at,
			"updated_at": at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark code sold: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domainCode.ErrCodeUnavailable
	}

	return nil
}

func (r *CodeRepository) MarkActivated(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.conn(ctx).
		Model(&models.DeviceCodeModel{}).
		Where("id = ? AND status = ?", id, string(domainCode.StatusSold)).
		Updates(map[string]interface{}{
			"status":       string(domainCode.StatusActivated),
			"activated_at": at,
			"updated_at":   at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to activate code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainCode.ErrCodeInvalid
	}

	return nil
}

func (r *CodeRepository) SetLockReason(ctx context.Context, id uuid.UUID, reason *string) error {
	result := r.db.conn(ctx).
		Model(&models.DeviceCodeModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"lock_reason": reason,
			"updated_at":  time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to set lock reason: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainCode.ErrCodeNotFound
	}

	return nil
}

func (r *CodeRepository) List(ctx context.Context, filter *domainCode.Filter) ([]*domainCode.DeviceCode, int64, error) {
	if filter == nil {
		filter = &domainCode.Filter{}
	}

	query := r.db.conn(ctx).Model(&models.DeviceCodeModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.SoldTo != nil {
		query = query.Where("sold_to = ?", *filter.SoldTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count device codes: %w", err)
	}

	offset, limit := pageBounds(filter.Page, filter.PageSize)
	var dbModels []models.DeviceCodeModel
	if err := query.Order("created_at DESC, code ASC").Offset(offset).Limit(limit).Find(&dbModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list device codes: %w", err)
	}

	codes := make([]*domainCode.DeviceCode, len(dbModels))
	for i := range dbModels {
		codes[i] = toCodeEntity(&dbModels[i])
	}

	return codes, total, nil
}

func toCodeModel(c *domainCode.DeviceCode) *models.DeviceCodeModel {
	return &models.DeviceCodeModel{
		ID:          c.ID,
		Code:        c.Code,
		Price:       c.Price,
		Status:      string(c.Status),
		SoldTo:      c.SoldTo,
		SoldAt:      c.SoldAt,
		ActivatedAt: c.ActivatedAt,
		LockReason:  c.LockReason,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCodeEntity(m *models.DeviceCodeModel) *domainCode.DeviceCode {
	return &domainCode.DeviceCode{
		ID:          m.ID,
		Code:        m.Code,
		Price:       m.Price,
		Status:      domainCode.Status(m.Status),
		SoldTo:      m.SoldTo,
		SoldAt:      m.SoldAt,
		ActivatedAt: m.ActivatedAt,
		LockReason:  m.LockReason,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
