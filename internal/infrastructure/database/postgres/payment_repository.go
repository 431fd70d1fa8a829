package postgres

import (
	"context"
	domainPayment "device-finance-backoffice/internal/domain/payment"
	"device-finance-backoffice/internal/infrastructure/database/postgres/models"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) domainPayment.Repository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreatePlan(ctx context.Context, plan *domainPayment.Plan, installments []*domainPayment.Installment) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	rows := make([]*models.PaymentInstallmentModel, len(installments))
	for i, inst := range installments {
		if inst.ID == uuid.Nil {
			inst.ID = uuid.New()
		}
		inst.PlanID = plan.ID
		rows[i] = toInstallmentModel(inst)
	}

	err := r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toPlanModel(plan)).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return domainPayment.ErrScheduleExists
		}
		return fmt.Errorf("failed to create payment plan: %w", err)
	}

	return nil
}

func (r *PaymentRepository) HasOpenInstallments(ctx context.Context, codeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.conn(ctx).
		Model(&models.PaymentInstallmentModel{}).
		Where("device_code_id = ? AND status <> ?", codeID, string(domainPayment.StatusCompleted)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count installments: %w", err)
	}
	return count > 0, nil
}

func (r *PaymentRepository) GetInstallment(ctx context.Context, id uuid.UUID) (*domainPayment.Installment, error) {
	var dbModel models.PaymentInstallmentModel
	err := r.db.conn(ctx).Where("id = ?", id).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainPayment.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return toInstallmentEntity(&dbModel), nil
}

func (r *PaymentRepository) CompleteInstallment(ctx context.Context, id uuid.UUID, paid decimal.Decimal, at time.Time) error {
	result := r.db.conn(ctx).
		Model(&models.PaymentInstallmentModel{}).
		Where("id = ? AND status <> ?", id, string(domainPayment.StatusCompleted)).
		Updates(map[string]interface{}{
			"status":      string(domainPayment.StatusCompleted),
			"paid_amount": decimal.NewNullDecimal(paid),
			"paid_date":   at,
			"updated_at":  at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete installment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetInstallment(ctx, id); err != nil {
			return err
		}
		return domainPayment.ErrAlreadyCompleted
	}

	return nil
}

func (r *PaymentRepository) CompletePlanIfSettled(ctx context.Context, planID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.conn(ctx).
		Model(&models.PaymentPlanModel{}).
		Where("id = ? AND completed_at IS NULL", planID).
		Where(`NOT EXISTS (
			SELECT 1 FROM payment_installments pi
			WHERE pi.plan_id = payment_plans.id AND pi.status <> ?)`,
			string(domainPayment.StatusCompleted)).
		Update("completed_at", at)

	if result.Error != nil {
		return false, fmt.Errorf("failed to complete payment plan: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListInstallmentsByCode(ctx context.Context, codeID uuid.UUID) ([]*domainPayment.Installment, error) {
	var dbModels []models.PaymentInstallmentModel
	err := r.db.conn(ctx).
		Where("device_code_id = ?", codeID).
		Order("due_date ASC, sequence ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	installments := make([]*domainPayment.Installment, len(dbModels))
	for i := range dbModels {
		installments[i] = toInstallmentEntity(&dbModels[i])
	}
	return installments, nil
}

func toPlanModel(p *domainPayment.Plan) *models.PaymentPlanModel {
	return &models.PaymentPlanModel{
		ID:               p.ID,
		DeviceCodeID:     p.DeviceCodeID,
		TotalAmount:      p.TotalAmount,
		InstallmentCount: p.InstallmentCount,
		CompletedAt:      p.CompletedAt,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
	}
}

func toInstallmentModel(i *domainPayment.Installment) *models.PaymentInstallmentModel {
	m := &models.PaymentInstallmentModel{
		ID:           i.ID,
		PlanID:       i.PlanID,
		DeviceCodeID: i.DeviceCodeID,
		Sequence:     i.Sequence,
		Amount:       i.Amount,
		DueDate:      i.DueDate,
		Status:       string(i.Status),
		PaidDate:     i.PaidDate,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
	if i.PaidAmount != nil {
		m.PaidAmount = decimal.NewNullDecimal(*i.PaidAmount)
	}
	return m
}

func toInstallmentEntity(m *models.PaymentInstallmentModel) *domainPayment.Installment {
	inst := &domainPayment.Installment{
		ID:           m.ID,
		PlanID:       m.PlanID,
		DeviceCodeID: m.DeviceCodeID,
		Sequence:     m.Sequence,
		Amount:       m.Amount,
		DueDate:      m.DueDate,
		Status:       domainPayment.Status(m.Status),
		PaidDate:     m.PaidDate,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.PaidAmount.Valid {
		paid := m.PaidAmount.Decimal
		inst.PaidAmount = &paid
	}
	return inst
}
