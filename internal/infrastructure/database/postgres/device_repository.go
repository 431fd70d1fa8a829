package postgres

import (
	"context"
	domainDevice "device-finance-backoffice/internal/domain/device"
	domainPayment "device-finance-backoffice/internal/domain/payment"
	"device-finance-backoffice/internal/infrastructure/database/postgres/models"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceRepository implements domain.Device.Repository interface
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *DB) domainDevice.Repository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	dbModel := toDeviceModel(d)
	if err := r.db.conn(ctx).Create(dbModel).Error; err != nil {
		if isDuplicateKey(err) {
			return domainDevice.ErrDeviceAlreadyRegistered
		}
		return fmt.Errorf("failed to create device: %w", err)
	}

	d.CreatedAt = dbModel.CreatedAt
	d.UpdatedAt = dbModel.UpdatedAt

	return nil
}

func (r *DeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.conn(ctx).Where("device_id = ?", deviceID).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) GetByCodeID(ctx context.Context, codeID uuid.UUID) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.conn(ctx).Where("device_code_id = ?", codeID).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domainDevice.Status, reason *string, at time.Time) error {
	result := r.db.conn(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            string(status),
			"lock_reason":       reason,
			"status_changed_at": at,
			"updated_at":        at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) TransitionFrom(ctx context.Context, id uuid.UUID, from, to domainDevice.Status, reason *string, at time.Time) (bool, error) {
	result := r.db.conn(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":            string(to),
			"lock_reason":       reason,
			"status_changed_at": at,
			"updated_at":        at,
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to transition device: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *DeviceRepository) LockIfOverdue(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	result := r.db.conn(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ? AND status <> ?", id, string(domainDevice.StatusLocked)).
		Where(`EXISTS (
			SELECT 1 FROM payment_installments pi
			WHERE pi.device_code_id = devices.device_code_id
			AND pi.status = ? AND pi.due_date < ?)`,
			string(domainPayment.StatusPending), now).
		Updates(map[string]interface{}{
			"status":            string(domainDevice.StatusLocked),
			"lock_reason":       reason,
			"status_changed_at": now,
			"updated_at":        now,
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to lock overdue device: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *DeviceRepository) List(ctx context.Context, filter *domainDevice.Filter) ([]*domainDevice.Device, int64, error) {
	if filter == nil {
		filter = &domainDevice.Filter{}
	}

	query := r.db.conn(ctx).Model(&models.DeviceModel{})
	if filter.Status != nil {
		query = query.Where("devices.status = ?", string(*filter.Status))
	}
	if filter.SoldTo != nil {
		query = query.
			Joins("JOIN device_codes ON device_codes.id = devices.device_code_id").
			Where("device_codes.sold_to = ?", *filter.SoldTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(devices.device_id) LIKE ? OR LOWER(devices.model) LIKE ? OR devices.imei LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	offset, limit := pageBounds(filter.Page, filter.PageSize)
	var dbModels []models.DeviceModel
	if err := query.Select("devices.*").Order("devices.created_at DESC").Offset(offset).Limit(limit).Find(&dbModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = toDeviceEntity(&dbModels[i])
	}

	return devices, total, nil
}

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	return &models.DeviceModel{
		ID:              d.ID,
		DeviceID:        d.DeviceID,
		Model:           d.Model,
		Manufacturer:    d.Manufacturer,
		OSVersion:       d.OSVersion,
		IMEI:            d.IMEI,
		IsRooted:        d.IsRooted,
		DeviceCodeID:    d.DeviceCodeID,
		Status:          string(d.Status),
		LockReason:      d.LockReason,
		StatusChangedAt: d.StatusChangedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	return &domainDevice.Device{
		ID:              m.ID,
		DeviceID:        m.DeviceID,
		Model:           m.Model,
		Manufacturer:    m.Manufacturer,
		OSVersion:       m.OSVersion,
		IMEI:            m.IMEI,
		IsRooted:        m.IsRooted,
		DeviceCodeID:    m.DeviceCodeID,
		Status:          domainDevice.Status(m.Status),
		LockReason:      m.LockReason,
		StatusChangedAt: m.StatusChangedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
