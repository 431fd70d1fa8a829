package device

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainAdmin "device-finance-backoffice/internal/domain/admin"
	domainCode "device-finance-backoffice/internal/domain/code"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/domain/event"
	domainSecurity "device-finance-backoffice/internal/domain/security"
	"device-finance-backoffice/internal/infrastructure/cache"
	"device-finance-backoffice/internal/infrastructure/database/postgres"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/usecase/code"
	"device-finance-backoffice/internal/usecase/payment"
	"device-finance-backoffice/pkg/clock"
	appErrors "device-finance-backoffice/pkg/errors"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(t event.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type failingDeviceRepo struct {
	domainDevice.Repository
}

func (failingDeviceRepo) Create(context.Context, *domainDevice.Device) error {
	return errors.New("disk full")
}

type DeviceServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *postgres.DB
	clock     *clock.Manual
	publisher *recordingPublisher
	presence  *cache.MemoryPresence

	codeRepo     domainCode.Repository
	deviceRepo   domainDevice.Repository
	securityRepo domainSecurity.Repository
	adminRepo    domainAdmin.Repository

	codes    *code.Service
	payments *payment.Service
	service  *Service

	super actor.Actor
	admin actor.Actor
	buyer uuid.UUID
}

func TestDeviceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DeviceServiceTestSuite))
}

func (s *DeviceServiceTestSuite) SetupTest() {
	logger.SetLogger(zaptest.NewLogger(s.T()))

	db, err := postgres.NewTestDB()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.db = db
	s.clock = clock.NewManual(time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC))
	s.publisher = &recordingPublisher{}
	s.presence = cache.NewMemoryPresence(5 * time.Minute)

	s.codeRepo = postgres.NewCodeRepository(db)
	s.deviceRepo = postgres.NewDeviceRepository(db)
	s.securityRepo = postgres.NewSecurityRepository(db)
	s.adminRepo = postgres.NewAdminRepository(db)
	tx := postgres.NewTransactor(db)

	s.codes = code.NewService(s.codeRepo, s.adminRepo, s.publisher, nil, s.clock)
	s.payments = payment.NewService(postgres.NewPaymentRepository(db), s.codeRepo, s.deviceRepo, tx, s.publisher, nil, s.clock, 1)
	s.service = NewService(s.deviceRepo, s.codeRepo, s.securityRepo, s.codes, s.payments, s.presence, tx, s.publisher, nil, s.clock)

	s.super = actor.Actor{ID: uuid.NewString(), Role: actor.RoleSuperAdmin}
	s.buyer = s.newAdmin("bank-a@example.com")
	s.admin = actor.Actor{ID: s.buyer.String(), Role: actor.RoleAdmin}
}

func (s *DeviceServiceTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *DeviceServiceTestSuite) newAdmin(email string) uuid.UUID {
	a := &domainAdmin.Admin{
		Email:          email,
		Name:           "Bank",
		Role:           domainAdmin.RoleAdmin,
		Status:         domainAdmin.StatusActive,
		PasswordHashed: "x",
	}
	s.Require().NoError(s.adminRepo.Create(s.ctx, a))
	return a.ID
}

func (s *DeviceServiceTestSuite) newCode(value string) *domainCode.DeviceCode {
	c := &domainCode.DeviceCode{
		Code:      value,
		Price:     decimal.NewFromInt(300),
		Status:    domainCode.StatusAvailable,
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.codeRepo.CreateBatch(s.ctx, []*domainCode.DeviceCode{c}))
	return c
}

func (s *DeviceServiceTestSuite) soldCode(value string, buyer uuid.UUID) *domainCode.DeviceCode {
	c := s.newCode(value)
	_, err := s.codes.Sell(s.ctx, s.super, c.ID, &code.SellCodeRequest{BuyerID: buyer})
	s.Require().NoError(err)
	return c
}

func (s *DeviceServiceTestSuite) register(deviceID, value string) *DeviceResponse {
	d, err := s.service.Register(s.ctx, s.admin, &RegisterDeviceRequest{
		DeviceID:     deviceID,
		Model:        "Pixel 8",
		Manufacturer: "Google",
		OSVersion:    "14",
		Code:         value,
	})
	s.Require().NoError(err)
	return d
}

func (s *DeviceServiceTestSuite) schedule(c *domainCode.DeviceCode, total int64, n int) *payment.ScheduleResponse {
	out, err := s.payments.CreateSchedule(s.ctx, s.admin, &payment.CreateScheduleRequest{
		CodeID:           c.ID,
		TotalAmount:      decimal.NewFromInt(total),
		InstallmentCount: n,
	})
	s.Require().NoError(err)
	return out
}

func (s *DeviceServiceTestSuite) TestRegisterActivatesCode() {
	c := s.soldCode("ABCD1234", s.buyer)

	d := s.register("DEV-1", "abcd1234")

	s.Equal(domainDevice.StatusActive, d.Status)
	s.Equal(c.ID, d.DeviceCodeID)

	stored, err := s.codeRepo.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(domainCode.StatusActivated, stored.Status)
	s.NotNil(stored.ActivatedAt)
	s.Equal(1, s.publisher.count(event.DeviceRegistered))
}

func (s *DeviceServiceTestSuite) TestRegisterRejectsCodeThatIsNotSold() {
	s.newCode("AVAILABLE1")

	tests := []struct {
		name string
		code string
	}{
		{name: "given an available code", code: "AVAILABLE1"},
		{name: "given an unknown code", code: "MISSING01"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Register(s.ctx, s.admin, &RegisterDeviceRequest{DeviceID: "DEV-X", Code: tt.code})
			s.ErrorIs(err, domainCode.ErrCodeInvalid)
		})
	}
}

func (s *DeviceServiceTestSuite) TestRegisterRejectsActivatedCode() {
	s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")

	_, err := s.service.Register(s.ctx, s.admin, &RegisterDeviceRequest{DeviceID: "DEV-2", Code: "ABCD1234"})
	s.ErrorIs(err, domainCode.ErrCodeInvalid)
}

func (s *DeviceServiceTestSuite) TestRegisterRejectsDuplicateDevice() {
	s.soldCode("ABCD1234", s.buyer)
	second := s.soldCode("EFGH5678", s.buyer)
	s.register("DEV-1", "ABCD1234")

	_, err := s.service.Register(s.ctx, s.admin, &RegisterDeviceRequest{DeviceID: "DEV-1", Code: "EFGH5678"})
	s.ErrorIs(err, domainDevice.ErrDeviceAlreadyRegistered)

	stored, err := s.codeRepo.GetByID(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(domainCode.StatusSold, stored.Status)
}

func (s *DeviceServiceTestSuite) TestRegisterRejectsMalformedDeviceIDs() {
	s.soldCode("ABCD1234", s.buyer)
	s.soldCode("EFGH5678", s.buyer)

	for _, id := range []string{"DEV/1", "DEV 1", "DEV+1", "DEV#1"} {
		s.Run(id, func() {
			_, err := s.service.Register(s.ctx, s.admin, &RegisterDeviceRequest{DeviceID: id, Code: "ABCD1234"})
			var appErr *appErrors.AppError
			s.Require().ErrorAs(err, &appErr)
			s.Equal("VALIDATION_ERROR", appErr.Code)
		})
	}

	_, err := s.deviceRepo.GetByDeviceID(s.ctx, "DEV1")
	s.ErrorIs(err, domainDevice.ErrDeviceNotFound)

	stored, err := s.codeRepo.GetByCode(s.ctx, "ABCD1234")
	s.Require().NoError(err)
	s.Equal(domainCode.StatusSold, stored.Status)

	d := s.register("DEV1", "EFGH5678")
	s.Equal("DEV1", d.DeviceID)
}

func (s *DeviceServiceTestSuite) TestRegisterStoresDescriptiveFieldsVerbatim() {
	s.soldCode("ABCD1234", s.buyer)

	d, err := s.service.Register(s.ctx, actor.Device("spoofed"), &RegisterDeviceRequest{
		DeviceID:     "  DEV-1  ",
		Model:        " Galaxy <A15> ",
		Manufacturer: "AT&T",
		OSVersion:    "14",
		Code:         "ABCD1234",
	})
	s.Require().NoError(err)
	s.Equal("DEV-1", d.DeviceID)

	stored, err := s.deviceRepo.GetByDeviceID(s.ctx, "DEV-1")
	s.Require().NoError(err)
	s.Equal("Galaxy <A15>", stored.Model)
	s.Equal("AT&T", stored.Manufacturer)

	s.publisher.mu.Lock()
	defer s.publisher.mu.Unlock()
	var registered []event.Event
	for _, e := range s.publisher.events {
		if e.Type == event.DeviceRegistered {
			registered = append(registered, e)
		}
	}
	s.Require().Len(registered, 1)
	s.Equal(actor.Device("DEV-1"), registered[0].Actor)
	s.Equal("DEV-1", registered[0].Subject)
}

func (s *DeviceServiceTestSuite) TestRegisterRollsBackActivationWhenDeviceInsertFails() {
	c := s.soldCode("ABCD1234", s.buyer)
	tx := postgres.NewTransactor(s.db)
	svc := NewService(failingDeviceRepo{s.deviceRepo}, s.codeRepo, s.securityRepo, s.codes, s.payments, s.presence, tx, s.publisher, nil, s.clock)

	_, err := svc.Register(s.ctx, s.admin, &RegisterDeviceRequest{DeviceID: "DEV-1", Code: "ABCD1234"})
	s.Require().Error(err)

	stored, err := s.codeRepo.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(domainCode.StatusSold, stored.Status)
	s.Nil(stored.ActivatedAt)
	s.Zero(s.publisher.count(event.DeviceRegistered))
}

func (s *DeviceServiceTestSuite) TestRegisterRejectsCodeSoldToAnotherAdmin() {
	other := s.newAdmin("bank-b@example.com")
	s.soldCode("ABCD1234", other)

	_, err := s.service.Register(s.ctx, s.admin, &RegisterDeviceRequest{DeviceID: "DEV-1", Code: "ABCD1234"})
	s.ErrorIs(err, domainCode.ErrCodeInvalid)
}

func (s *DeviceServiceTestSuite) TestInstallmentScenario() {
	c := s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")
	plan := s.schedule(c, 300, 2)
	s.Require().Len(plan.Installments, 2)

	_, err := s.payments.ProcessPayment(s.ctx, s.admin, plan.Installments[0].ID, &payment.ProcessPaymentRequest{Amount: decimal.NewFromInt(150)})
	s.Require().NoError(err)

	st, err := s.payments.StatusByDevice(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)
	s.True(st.PaidAmount.Equal(decimal.NewFromInt(150)))
	s.True(st.RemainingAmount.Equal(decimal.NewFromInt(150)))
	s.False(st.IsLocked)

	s.clock.Set(plan.Installments[0].DueDate.Add(time.Hour))
	status, err := s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusActive, status.Status)
	s.Require().NotNil(status.NextPaymentDate)
	s.True(status.NextPaymentDate.Equal(plan.Installments[1].DueDate))

	s.clock.Set(plan.Installments[1].DueDate.Add(time.Second))
	status, err = s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusLocked, status.Status)
	s.Require().NotNil(status.LockReason)
	s.Equal(domainDevice.ReasonPaymentOverdue, *status.LockReason)
}

func (s *DeviceServiceTestSuite) TestCheckStatusLocksOverdueDeviceAndPersists() {
	c := s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")
	plan := s.schedule(c, 300, 2)

	s.clock.Set(plan.Installments[0].DueDate)
	status, err := s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusActive, status.Status, "an installment due exactly now is not overdue")

	s.clock.Advance(time.Second)
	status, err = s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusLocked, status.Status)

	stored, err := s.deviceRepo.GetByDeviceID(s.ctx, "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusLocked, stored.Status)

	storedCode, err := s.codeRepo.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(storedCode.LockReason)
	s.Equal(domainDevice.ReasonPaymentOverdue, *storedCode.LockReason)

	_, err = s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(1, s.publisher.count(event.DeviceLocked))
}

func (s *DeviceServiceTestSuite) TestFinalPaymentsUnlockExactlyOnce() {
	c := s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")
	plan := s.schedule(c, 300, 3)

	_, err := s.service.Lock(s.ctx, s.admin, "DEV-1", &LockDeviceRequest{Reason: "collections review"})
	s.Require().NoError(err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		errs      []error
	)
	for _, inst := range plan.Installments {
		wg.Add(1)
		go func(id uuid.UUID, amount decimal.Decimal) {
			defer wg.Done()
			res, err := s.payments.ProcessPayment(s.ctx, s.admin, id, &payment.ProcessPaymentRequest{Amount: amount})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.PlanCompleted {
				completed++
			}
		}(inst.ID, inst.Amount)
	}
	wg.Wait()

	s.Empty(errs)
	s.Equal(1, completed)
	s.Equal(1, s.publisher.count(event.DeviceUnlocked))
	s.Equal(1, s.publisher.count(event.PlanCompleted))

	stored, err := s.deviceRepo.GetByDeviceID(s.ctx, "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusUnlocked, stored.Status)
	s.Nil(stored.LockReason)
}

func (s *DeviceServiceTestSuite) TestCheckStatusHonoursFailedSecurityEvaluation() {
	s.soldCode("ABCD1234", s.buyer)
	d := s.register("DEV-1", "ABCD1234")

	s.clock.Advance(time.Minute)
	eval := domainSecurity.Evaluate(false, domainSecurity.Posture{Rooted: false, BootloaderLocked: false, AttestationPassed: true})
	eval.ID = uuid.New()
	eval.DeviceID = d.ID
	eval.EvaluatedAt = s.clock.Now()
	s.Require().NoError(s.securityRepo.Save(s.ctx, &eval))

	s.clock.Advance(time.Minute)
	status, err := s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusLocked, status.Status)
	s.Require().NotNil(status.LockReason)
	s.Equal(domainSecurity.ReasonBootloaderUnlocked, *status.LockReason)

	s.clock.Advance(time.Minute)
	_, err = s.service.Unlock(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	status, err = s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusUnlocked, status.Status, "an evaluation older than the last transition is ignored")
}

func (s *DeviceServiceTestSuite) TestLockAndUnlockMirrorReasonOnCode() {
	c := s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")

	locked, err := s.service.Lock(s.ctx, s.admin, "DEV-1", &LockDeviceRequest{Reason: "reported stolen"})
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusLocked, locked.Status)

	_, err = s.service.Lock(s.ctx, s.admin, "DEV-1", &LockDeviceRequest{Reason: "reported stolen"})
	s.Require().NoError(err, "lock is idempotent")

	storedCode, err := s.codeRepo.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(storedCode.LockReason)
	s.Equal("reported stolen", *storedCode.LockReason)

	unlocked, err := s.service.Unlock(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)
	s.Equal(domainDevice.StatusUnlocked, unlocked.Status)
	s.Nil(unlocked.LockReason)

	storedCode, err = s.codeRepo.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Nil(storedCode.LockReason)
}

func (s *DeviceServiceTestSuite) TestLockRequiresStaff() {
	s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")

	_, err := s.service.Lock(s.ctx, actor.Device("DEV-1"), "DEV-1", &LockDeviceRequest{Reason: "self lock"})
	s.Error(err)

	other := actor.Actor{ID: s.newAdmin("bank-b@example.com").String(), Role: actor.RoleAdmin}
	_, err = s.service.Unlock(s.ctx, other, "DEV-1")
	s.ErrorIs(err, domainDevice.ErrDeviceNotFound)
}

func (s *DeviceServiceTestSuite) TestCheckStatusRecordsPresence() {
	s.soldCode("ABCD1234", s.buyer)
	s.register("DEV-1", "ABCD1234")

	status, err := s.service.CheckStatus(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)
	s.False(status.Online, "staff reads do not count as check-ins")

	status, err = s.service.CheckStatus(s.ctx, actor.Device("DEV-1"), "DEV-1")
	s.Require().NoError(err)
	s.True(status.Online)
	s.Require().NotNil(status.LastSeenAt)

	s.clock.Advance(10 * time.Minute)
	got, err := s.service.Get(s.ctx, s.admin, "DEV-1")
	s.Require().NoError(err)
	s.False(got.IsOnline)
}

func (s *DeviceServiceTestSuite) TestListScopesAdminsToTheirCodes() {
	other := s.newAdmin("bank-b@example.com")
	s.soldCode("ABCD1234", s.buyer)
	s.soldCode("EFGH5678", other)
	s.register("DEV-1", "ABCD1234")
	_, err := s.service.Register(s.ctx, s.super, &RegisterDeviceRequest{DeviceID: "DEV-2", Code: "EFGH5678"})
	s.Require().NoError(err)

	mine, err := s.service.List(s.ctx, s.admin, &DeviceFilterRequest{})
	s.Require().NoError(err)
	s.Require().Len(mine.Devices, 1)
	s.Equal("DEV-1", mine.Devices[0].DeviceID)

	all, err := s.service.List(s.ctx, s.super, &DeviceFilterRequest{})
	s.Require().NoError(err)
	s.Equal(int64(2), all.Total)
}

func (s *DeviceServiceTestSuite) TestPlanCompletedWithoutDeviceIsIgnored() {
	c := s.soldCode("ABCD1234", s.buyer)

	s.NoError(s.service.HandlePlanCompleted(s.ctx, actor.System(), c.ID))
	s.Zero(s.publisher.count(event.DeviceUnlocked))
}
