package postgres

import (
	"context"
	domainAdmin "device-finance-backoffice/internal/domain/admin"
	"device-finance-backoffice/internal/infrastructure/database/postgres/models"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminRepository struct {
	db *DB
}

func NewAdminRepository(db *DB) domainAdmin.Repository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, a *domainAdmin.Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	dbModel := toAdminModel(a)
	if err := r.db.conn(ctx).Create(dbModel).Error; err != nil {
		if isDuplicateKey(err) {
			return domainAdmin.ErrAdminAlreadyExists
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	a.CreatedAt = dbModel.CreatedAt
	a.UpdatedAt = dbModel.UpdatedAt
	return nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*domainAdmin.Admin, error) {
	var dbModel models.AdminModel
	err := r.db.conn(ctx).Where("id = ?", id).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAdmin.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return toAdminEntity(&dbModel), nil
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*domainAdmin.Admin, error) {
	var dbModel models.AdminModel
	err := r.db.conn(ctx).Where("email = ?", email).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAdmin.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return toAdminEntity(&dbModel), nil
}

func (r *AdminRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domainAdmin.Status) error {
	result := r.db.conn(ctx).
		Model(&models.AdminModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update admin status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainAdmin.ErrAdminNotFound
	}
	return nil
}

func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.conn(ctx).
		Model(&models.AdminModel{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (r *AdminRepository) List(ctx context.Context, role *domainAdmin.Role) ([]*domainAdmin.Admin, error) {
	query := r.db.conn(ctx).Model(&models.AdminModel{})
	if role != nil {
		query = query.Where("role = ?", string(*role))
	}

	var dbModels []models.AdminModel
	if err := query.Order("created_at ASC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	admins := make([]*domainAdmin.Admin, len(dbModels))
	for i := range dbModels {
		admins[i] = toAdminEntity(&dbModels[i])
	}
	return admins, nil
}

func toAdminModel(a *domainAdmin.Admin) *models.AdminModel {
	return &models.AdminModel{
		ID:             a.ID,
		Email:          a.Email,
		Name:           a.Name,
		BankName:       a.BankName,
		Role:           string(a.Role),
		Status:         string(a.Status),
		PasswordHashed: a.PasswordHashed,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAdminEntity(m *models.AdminModel) *domainAdmin.Admin {
	return &domainAdmin.Admin{
		ID:             m.ID,
		Email:          m.Email,
		Name:           m.Name,
		BankName:       m.BankName,
		Role:           domainAdmin.Role(m.Role),
		Status:         domainAdmin.Status(m.Status),
		PasswordHashed: m.PasswordHashed,
		LastLoginAt:    m.LastLoginAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
