package payment

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainCode "device-finance-backoffice/internal/domain/code"
	domainDevice "device-finance-backoffice/internal/domain/device"
	domainPayment "device-finance-backoffice/internal/domain/payment"
	"device-finance-backoffice/internal/infrastructure/database/postgres"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/pkg/clock"
	appErrors "device-finance-backoffice/pkg/errors"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type completionRecorder struct {
	codes []uuid.UUID
	err   error
}

func (r *completionRecorder) HandlePlanCompleted(_ context.Context, a actor.Actor, codeID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.codes = append(r.codes, codeID)
	return nil
}

type PaymentServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	db         *postgres.DB
	clock      *clock.Manual
	codeRepo   domainCode.Repository
	service    *Service
	completion *completionRecorder

	admin actor.Actor
	buyer uuid.UUID
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) SetupTest() {
	logger.SetLogger(zaptest.NewLogger(s.T()))

	db, err := postgres.NewTestDB()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.db = db
	s.clock = clock.NewManual(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	s.codeRepo = postgres.NewCodeRepository(db)
	s.service = NewService(
		postgres.NewPaymentRepository(db),
		s.codeRepo,
		postgres.NewDeviceRepository(db),
		postgres.NewTransactor(db),
		nil,
		nil,
		s.clock,
		1,
	)
	s.completion = &completionRecorder{}
	s.service.SetCompletionHandler(s.completion)

	s.buyer = uuid.New()
	s.admin = actor.Actor{ID: s.buyer.String(), Role: actor.RoleAdmin}
}

func (s *PaymentServiceTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *PaymentServiceTestSuite) soldCode(value string) *domainCode.DeviceCode {
	now := s.clock.Now()
	c := &domainCode.DeviceCode{
		Code:      value,
		Price:     decimal.NewFromInt(300),
		Status:    domainCode.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.codeRepo.CreateBatch(s.ctx, []*domainCode.DeviceCode{c}))
	s.Require().NoError(s.codeRepo.MarkSold(s.ctx, c.ID, s.buyer, now))
	return c
}

func (s *PaymentServiceTestSuite) TestCreateScheduleSplitsEvenly() {
	c := s.soldCode("ABCD1234")
	start := s.clock.Now()

	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{
		CodeID:           c.ID,
		TotalAmount:      decimal.NewFromInt(300),
		InstallmentCount: 3,
	})
	s.Require().NoError(err)
	s.Require().Len(plan.Installments, 3)

	for i, inst := range plan.Installments {
		s.True(inst.Amount.Equal(decimal.NewFromInt(100)), "installment %d amount %s", i, inst.Amount)
		s.True(inst.DueDate.Equal(start.AddDate(0, i+1, 0)))
		s.Equal(domainPayment.StatusPending, inst.Status)
		s.Nil(inst.PaidDate)
	}
}

func (s *PaymentServiceTestSuite) TestCreateScheduleLastInstallmentAbsorbsRemainder() {
	c := s.soldCode("ABCD1234")

	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{
		CodeID:           c.ID,
		TotalAmount:      decimal.NewFromInt(100),
		InstallmentCount: 3,
	})
	s.Require().NoError(err)

	sum := decimal.Zero
	for _, inst := range plan.Installments {
		sum = sum.Add(inst.Amount)
	}
	s.True(plan.Installments[0].Amount.Equal(decimal.RequireFromString("33.33")))
	s.True(plan.Installments[2].Amount.Equal(decimal.RequireFromString("33.34")))
	s.True(sum.Equal(decimal.NewFromInt(100)))
}

func (s *PaymentServiceTestSuite) TestCreateScheduleRejections() {
	sold := s.soldCode("ABCD1234")
	available := &domainCode.DeviceCode{Code: "EFGH5678", Price: decimal.NewFromInt(1), Status: domainCode.StatusAvailable}
	s.Require().NoError(s.codeRepo.CreateBatch(s.ctx, []*domainCode.DeviceCode{available}))

	tests := []struct {
		name    string
		actor   actor.Actor
		req     *CreateScheduleRequest
		wantErr error
	}{
		{
			name:    "given a zero total",
			actor:   s.admin,
			req:     &CreateScheduleRequest{CodeID: sold.ID, TotalAmount: decimal.Zero, InstallmentCount: 2},
			wantErr: domainPayment.ErrInvalidSchedule,
		},
		{
			name:    "given no installments",
			actor:   s.admin,
			req:     &CreateScheduleRequest{CodeID: sold.ID, TotalAmount: decimal.NewFromInt(10), InstallmentCount: 0},
			wantErr: domainPayment.ErrInvalidSchedule,
		},
		{
			name:    "given an unsold code",
			actor:   actor.Actor{ID: uuid.NewString(), Role: actor.RoleSuperAdmin},
			req:     &CreateScheduleRequest{CodeID: available.ID, TotalAmount: decimal.NewFromInt(10), InstallmentCount: 1},
			wantErr: domainCode.ErrCodeInvalid,
		},
		{
			name:    "given a code of another admin",
			actor:   actor.Actor{ID: uuid.NewString(), Role: actor.RoleAdmin},
			req:     &CreateScheduleRequest{CodeID: sold.ID, TotalAmount: decimal.NewFromInt(10), InstallmentCount: 1},
			wantErr: domainCode.ErrCodeNotFound,
		},
		{
			name:    "given a device caller",
			actor:   actor.Device("DEV-1"),
			req:     &CreateScheduleRequest{CodeID: sold.ID, TotalAmount: decimal.NewFromInt(10), InstallmentCount: 1},
			wantErr: appErrors.ErrInsufficientPermissions,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateSchedule(s.ctx, tt.actor, tt.req)
			s.ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *PaymentServiceTestSuite) TestSecondScheduleRejectedWhileOpen() {
	c := s.soldCode("ABCD1234")
	req := &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(100), InstallmentCount: 1}

	plan, err := s.service.CreateSchedule(s.ctx, s.admin, req)
	s.Require().NoError(err)

	_, err = s.service.CreateSchedule(s.ctx, s.admin, req)
	s.ErrorIs(err, domainPayment.ErrScheduleExists)

	_, err = s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[0].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(100)})
	s.Require().NoError(err)

	_, err = s.service.CreateSchedule(s.ctx, s.admin, req)
	s.NoError(err, "a settled plan does not block a new one")
}

func (s *PaymentServiceTestSuite) TestProcessPaymentRejectsShortAmountWithoutChange() {
	c := s.soldCode("ABCD1234")
	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(300), InstallmentCount: 2})
	s.Require().NoError(err)

	_, err = s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[0].ID, &ProcessPaymentRequest{Amount: decimal.RequireFromString("149.99")})
	s.ErrorIs(err, domainPayment.ErrInsufficientAmount)

	status, err := s.service.StatusByCode(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.True(status.PaidAmount.IsZero())
	s.True(status.RemainingAmount.Equal(decimal.NewFromInt(300)))
	s.False(status.IsLocked)
}

func (s *PaymentServiceTestSuite) TestProcessPaymentCompletesPlanOnce() {
	c := s.soldCode("ABCD1234")
	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(300), InstallmentCount: 2})
	s.Require().NoError(err)

	first, err := s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[0].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(200)})
	s.Require().NoError(err)
	s.False(first.PlanCompleted)
	s.Equal(domainPayment.StatusCompleted, first.Installment.Status)
	s.Require().NotNil(first.Installment.PaidAmount)
	s.True(first.Installment.PaidAmount.Equal(decimal.NewFromInt(200)))

	_, err = s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[0].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(150)})
	s.ErrorIs(err, domainPayment.ErrAlreadyCompleted)

	last, err := s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[1].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(150)})
	s.Require().NoError(err)
	s.True(last.PlanCompleted)
	s.Equal([]uuid.UUID{c.ID}, s.completion.codes)

	_, err = s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[1].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(150)})
	s.ErrorIs(err, domainPayment.ErrAlreadyCompleted)
	s.Len(s.completion.codes, 1)
}

func (s *PaymentServiceTestSuite) TestFailedSettlementIsRetried() {
	c := s.soldCode("ABCD1234")
	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(100), InstallmentCount: 1})
	s.Require().NoError(err)
	id := plan.Installments[0].ID

	s.completion.err = errors.New("device store unavailable")
	_, err = s.service.ProcessPayment(s.ctx, s.admin, id, &ProcessPaymentRequest{Amount: decimal.NewFromInt(100)})
	s.Require().Error(err)
	s.Empty(s.completion.codes)

	s.completion.err = nil
	_, err = s.service.ProcessPayment(s.ctx, s.admin, id, &ProcessPaymentRequest{Amount: decimal.NewFromInt(100)})
	s.ErrorIs(err, domainPayment.ErrAlreadyCompleted)
	s.Equal([]uuid.UUID{c.ID}, s.completion.codes)
}

func (s *PaymentServiceTestSuite) TestProcessPaymentHidesOtherAdminsInstallments() {
	c := s.soldCode("ABCD1234")
	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(100), InstallmentCount: 1})
	s.Require().NoError(err)

	other := actor.Actor{ID: uuid.NewString(), Role: actor.RoleAdmin}
	_, err = s.service.ProcessPayment(s.ctx, other, plan.Installments[0].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(100)})
	s.ErrorIs(err, domainPayment.ErrPaymentNotFound)

	_, err = s.service.ProcessPayment(s.ctx, s.admin, uuid.New(), &ProcessPaymentRequest{Amount: decimal.NewFromInt(100)})
	s.ErrorIs(err, domainPayment.ErrPaymentNotFound)
}

func (s *PaymentServiceTestSuite) TestStatusReportsOverdue() {
	c := s.soldCode("ABCD1234")
	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3})
	s.Require().NoError(err)

	status, err := s.service.StatusByCode(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.False(status.HasOverdue)
	s.Require().NotNil(status.NextDueDate)
	s.True(status.NextDueDate.Equal(plan.Installments[0].DueDate))

	s.clock.Set(plan.Installments[0].DueDate.Add(time.Nanosecond))
	status, err = s.service.StatusByCode(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.True(status.HasOverdue)

	installments, err := s.service.ListInstallments(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.Len(installments, 3)
}

func (s *PaymentServiceTestSuite) TestStatusReportsLockedOnceOverdue() {
	c := s.soldCode("ABCD1234")
	now := s.clock.Now()
	s.Require().NoError(postgres.NewDeviceRepository(s.db).Create(s.ctx, &domainDevice.Device{
		ID:              uuid.New(),
		DeviceID:        "DEV-1",
		DeviceCodeID:    c.ID,
		Status:          domainDevice.StatusActive,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))

	plan, err := s.service.CreateSchedule(s.ctx, s.admin, &CreateScheduleRequest{CodeID: c.ID, TotalAmount: decimal.NewFromInt(300), InstallmentCount: 2})
	s.Require().NoError(err)
	_, err = s.service.ProcessPayment(s.ctx, s.admin, plan.Installments[0].ID, &ProcessPaymentRequest{Amount: decimal.NewFromInt(150)})
	s.Require().NoError(err)

	status, err := s.service.StatusByDevice(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)
	s.False(status.HasOverdue)
	s.False(status.IsLocked)

	s.clock.Set(plan.Installments[1].DueDate.Add(time.Second))

	status, err = s.service.StatusByDevice(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)
	s.True(status.HasOverdue)
	s.True(status.IsLocked, "an overdue installment locks the device before it checks in")

	status, err = s.service.StatusByCode(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.True(status.IsLocked)
}
