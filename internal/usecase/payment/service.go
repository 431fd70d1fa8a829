package payment

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainCode "device-finance-backoffice/internal/domain/code"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/domain/event"
	domainPayment "device-finance-backoffice/internal/domain/payment"
	"device-finance-backoffice/internal/domain/transaction"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/pkg/clock"
	appErrors "device-finance-backoffice/pkg/errors"
	"device-finance-backoffice/pkg/utils"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventSource = "device-finance-backoffice/payments"

// CompletionHandler consumes the all-paid signal of a code. It runs inside the
// transaction that marks the plan completed, so a failure leaves the plan open.
type CompletionHandler interface {
	HandlePlanCompleted(ctx context.Context, a actor.Actor, codeID uuid.UUID) error
}

// Service implements the payment scheduler.
type Service struct {
	paymentRepo  domainPayment.Repository
	codeRepo     domainCode.Repository
	deviceRepo   domainDevice.Repository
	tx           transaction.Manager
	publisher    event.Publisher
	metrics      *metrics.Recorder
	clock        clock.Clock
	periodMonths int
	completion   CompletionHandler
}

func NewService(
	paymentRepo domainPayment.Repository,
	codeRepo domainCode.Repository,
	deviceRepo domainDevice.Repository,
	tx transaction.Manager,
	publisher event.Publisher,
	recorder *metrics.Recorder,
	clk clock.Clock,
	periodMonths int,
) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if periodMonths < 1 {
		periodMonths = 1
	}
	return &Service{
		paymentRepo:  paymentRepo,
		codeRepo:     codeRepo,
		deviceRepo:   deviceRepo,
		tx:           tx,
		publisher:    publisher,
		metrics:      recorder,
		clock:        clk,
		periodMonths: periodMonths,
	}
}

// SetCompletionHandler installs the consumer of the all-paid signal.
func (s *Service) SetCompletionHandler(h CompletionHandler) {
	s.completion = h
}

func (s *Service) CreateSchedule(ctx context.Context, a actor.Actor, req *CreateScheduleRequest) (*ScheduleResponse, error) {
	if req.InstallmentCount < 1 || !req.TotalAmount.IsPositive() {
		return nil, domainPayment.ErrInvalidSchedule
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	c, err := s.authorizedCode(ctx, a, req.CodeID)
	if err != nil {
		return nil, err
	}
	if c.IsAvailable() {
		return nil, domainCode.ErrCodeInvalid
	}

	open, err := s.paymentRepo.HasOpenInstallments(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domainPayment.ErrScheduleExists
	}

	now := s.clock.Now()
	plan := &domainPayment.Plan{
		ID:               uuid.New(),
		DeviceCodeID:     c.ID,
		TotalAmount:      req.TotalAmount.Round(2),
		InstallmentCount: req.InstallmentCount,
		CreatedBy:        a.String(),
		CreatedAt:        now,
	}

	installments, err := domainPayment.BuildInstallments(plan, now, s.periodMonths)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.CreatePlan(ctx, plan, installments); err != nil {
		return nil, err
	}

	logger.Info("Payment schedule created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("code_id", c.ID.String()),
		zap.String("total_amount", plan.TotalAmount.String()),
		zap.Int("installments", plan.InstallmentCount),
		zap.String("actor", a.String()),
		zap.String("event", "schedule_created"),
	)
	s.publish(ctx, event.Event{
		Type:       event.ScheduleCreated,
		Subject:    c.ID.String(),
		Actor:      a,
		OccurredAt: now,
		Data: map[string]interface{}{
			"plan_id":           plan.ID.String(),
			"total_amount":      plan.TotalAmount.String(),
			"installment_count": plan.InstallmentCount,
		},
	})

	out := &ScheduleResponse{
		PlanID:       plan.ID,
		DeviceCodeID: c.ID,
		TotalAmount:  plan.TotalAmount,
		Installments: make([]InstallmentResponse, len(installments)),
	}
	for i, inst := range installments {
		out.Installments[i] = *ToInstallmentResponse(inst)
	}
	return out, nil
}

// ProcessPayment settles one installment in full. When it is the last open
// installment of its plan the all-paid signal fires, exactly once per plan.
func (s *Service) ProcessPayment(ctx context.Context, a actor.Actor, installmentID uuid.UUID, req *ProcessPaymentRequest) (*ProcessPaymentResponse, error) {
	inst, err := s.paymentRepo.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizedCode(ctx, a, inst.DeviceCodeID); err != nil {
		if errors.Is(err, domainCode.ErrCodeNotFound) {
			return nil, domainPayment.ErrPaymentNotFound
		}
		return nil, err
	}

	if inst.IsCompleted() {
		s.retrySettle(ctx, inst)
		return nil, domainPayment.ErrAlreadyCompleted
	}
	if req.Amount.LessThan(inst.Amount) {
		return nil, domainPayment.ErrInsufficientAmount
	}

	now := s.clock.Now()
	if err := s.paymentRepo.CompleteInstallment(ctx, inst.ID, req.Amount, now); err != nil {
		if errors.Is(err, domainPayment.ErrAlreadyCompleted) {
			s.retrySettle(ctx, inst)
		}
		return nil, err
	}

	paid := req.Amount
	inst.Status = domainPayment.StatusCompleted
	inst.PaidAmount = &paid
	inst.PaidDate = &now
	inst.UpdatedAt = now

	s.metrics.PaymentProcessed()
	logger.Info("Installment paid",
		zap.String("installment_id", inst.ID.String()),
		zap.String("code_id", inst.DeviceCodeID.String()),
		zap.String("amount", paid.String()),
		zap.String("actor", a.String()),
		zap.String("event", "payment_completed"),
	)
	s.publish(ctx, event.Event{
		Type:       event.PaymentCompleted,
		Subject:    inst.ID.String(),
		Actor:      a,
		OccurredAt: now,
		Data: map[string]string{
			"installment_id": inst.ID.String(),
			"code_id":        inst.DeviceCodeID.String(),
			"amount":         paid.String(),
		},
	})

	completed, err := s.settlePlan(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("installment %s paid but plan settlement failed: %w", inst.ID, err)
	}

	return &ProcessPaymentResponse{
		Installment:   *ToInstallmentResponse(inst),
		PlanCompleted: completed,
	}, nil
}

// settlePlan flips the plan's completed flag and runs the completion handler in
// one transaction. Only the caller whose update flips the flag sees true.
func (s *Service) settlePlan(ctx context.Context, inst *domainPayment.Installment) (bool, error) {
	now := s.clock.Now()
	completed := false

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		flipped, err := s.paymentRepo.CompletePlanIfSettled(ctx, inst.PlanID, now)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		if s.completion != nil {
			if err := s.completion.HandlePlanCompleted(ctx, actor.System(), inst.DeviceCodeID); err != nil {
				return err
			}
		}
		completed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !completed {
		return false, nil
	}

	s.metrics.PlanCompleted()
	logger.Info("Payment plan completed",
		zap.String("plan_id", inst.PlanID.String()),
		zap.String("code_id", inst.DeviceCodeID.String()),
		zap.String("event", "plan_completed"),
	)
	s.publish(ctx, event.Event{
		Type:       event.PlanCompleted,
		Subject:    inst.DeviceCodeID.String(),
		Actor:      actor.System(),
		OccurredAt: now,
		Data:       map[string]string{"plan_id": inst.PlanID.String(), "code_id": inst.DeviceCodeID.String()},
	})
	return true, nil
}

// retrySettle lets a repeated payment finish a settlement that failed after
// its installment had already been committed.
func (s *Service) retrySettle(ctx context.Context, inst *domainPayment.Installment) {
	if _, err := s.settlePlan(ctx, inst); err != nil {
		logger.Error("Failed to settle payment plan",
			zap.String("plan_id", inst.PlanID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) StatusByCode(ctx context.Context, a actor.Actor, codeID uuid.UUID) (*PaymentStatusResponse, error) {
	c, err := s.authorizedCode(ctx, a, codeID)
	if err != nil {
		return nil, err
	}

	summary, err := s.Summary(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	locked := false
	d, err := s.deviceRepo.GetByCodeID(ctx, c.ID)
	switch {
	case err == nil:
		locked = effectivelyLocked(d, summary)
	case !errors.Is(err, domainDevice.ErrDeviceNotFound):
		return nil, err
	}

	return toStatusResponse(c.ID, summary, locked), nil
}

func (s *Service) StatusByDevice(ctx context.Context, a actor.Actor, deviceID string) (*PaymentStatusResponse, error) {
	d, err := s.deviceRepo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizedCode(ctx, a, d.DeviceCodeID); err != nil {
		if errors.Is(err, domainCode.ErrCodeNotFound) {
			return nil, domainDevice.ErrDeviceNotFound
		}
		return nil, err
	}

	summary, err := s.Summary(ctx, d.DeviceCodeID)
	if err != nil {
		return nil, err
	}

	return toStatusResponse(d.DeviceCodeID, summary, effectivelyLocked(d, summary)), nil
}

// effectivelyLocked mirrors the lock checkStatus would apply, since the stored
// status lags until the device next checks in.
func effectivelyLocked(d *domainDevice.Device, summary domainPayment.Summary) bool {
	return d.IsLocked() || summary.HasOverdue
}

func (s *Service) ListInstallments(ctx context.Context, a actor.Actor, codeID uuid.UUID) ([]InstallmentResponse, error) {
	if _, err := s.authorizedCode(ctx, a, codeID); err != nil {
		return nil, err
	}

	installments, err := s.paymentRepo.ListInstallmentsByCode(ctx, codeID)
	if err != nil {
		return nil, err
	}

	out := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		out[i] = *ToInstallmentResponse(inst)
	}
	return out, nil
}

// Summary aggregates the installments of a code as of now. It performs no
// authorization and is meant for other use cases.
func (s *Service) Summary(ctx context.Context, codeID uuid.UUID) (domainPayment.Summary, error) {
	installments, err := s.paymentRepo.ListInstallmentsByCode(ctx, codeID)
	if err != nil {
		return domainPayment.Summary{}, err
	}
	return domainPayment.Summarize(installments, s.clock.Now()), nil
}

// authorizedCode loads the code and hides it from admins who did not buy it.
func (s *Service) authorizedCode(ctx context.Context, a actor.Actor, codeID uuid.UUID) (*domainCode.DeviceCode, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}

	c, err := s.codeRepo.GetByID(ctx, codeID)
	if err != nil {
		return nil, err
	}
	if a.IsSuperAdmin() {
		return c, nil
	}
	if adminID, ok := a.AdminID(); !ok || !c.OwnedBy(adminID) {
		return nil, domainCode.ErrCodeNotFound
	}
	return c, nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	e.Source = eventSource
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("Failed to publish lifecycle event",
			zap.String("type", string(e.Type)),
			zap.String("subject", e.Subject),
			zap.Error(err),
		)
	}
}
