package device

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainCode "device-finance-backoffice/internal/domain/code"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/domain/event"
	domainSecurity "device-finance-backoffice/internal/domain/security"
	"device-finance-backoffice/internal/domain/transaction"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/internal/usecase/code"
	"device-finance-backoffice/internal/usecase/payment"
	"device-finance-backoffice/pkg/clock"
	appErrors "device-finance-backoffice/pkg/errors"
	"device-finance-backoffice/pkg/utils"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventSource = "device-finance-backoffice/devices"

// Transition triggers, recorded on events and metrics.
const (
	TriggerAdmin        = "admin"
	TriggerOverdue      = "overdue"
	TriggerSecurity     = "security"
	TriggerPlanComplete = "plan_completed"
)

// Service is the device lifecycle manager and the only writer of device status.
type Service struct {
	deviceRepo   domainDevice.Repository
	codeRepo     domainCode.Repository
	securityRepo domainSecurity.Repository
	codes        *code.Service
	payments     *payment.Service
	presence     domainDevice.PresenceTracker
	tx           transaction.Manager
	publisher    event.Publisher
	metrics      *metrics.Recorder
	clock        clock.Clock
}

func NewService(
	deviceRepo domainDevice.Repository,
	codeRepo domainCode.Repository,
	securityRepo domainSecurity.Repository,
	codes *code.Service,
	payments *payment.Service,
	presence domainDevice.PresenceTracker,
	tx transaction.Manager,
	publisher event.Publisher,
	recorder *metrics.Recorder,
	clk clock.Clock,
) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	s := &Service{
		deviceRepo:   deviceRepo,
		codeRepo:     codeRepo,
		securityRepo: securityRepo,
		codes:        codes,
		payments:     payments,
		presence:     presence,
		tx:           tx,
		publisher:    publisher,
		metrics:      recorder,
		clock:        clk,
	}
	payments.SetCompletionHandler(s)
	return s
}

// Register binds a new device to a sold code. Code activation and device
// creation commit together or not at all.
func (s *Service) Register(ctx context.Context, a actor.Actor, req *RegisterDeviceRequest) (*DeviceResponse, error) {
	req.DeviceID = utils.NormalizeIdentifier(req.DeviceID)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Model = utils.SanitizeString(req.Model)
	req.Manufacturer = utils.SanitizeString(req.Manufacturer)
	req.OSVersion = utils.SanitizeString(req.OSVersion)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}
	if a.Role == actor.RoleDevice {
		a = actor.Device(req.DeviceID)
	}

	c, err := s.codeRepo.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, domainCode.ErrCodeNotFound) {
			return nil, domainCode.ErrCodeInvalid
		}
		return nil, err
	}
	if !c.IsSold() {
		return nil, domainCode.ErrCodeInvalid
	}
	if a.IsStaff() && !a.IsSuperAdmin() {
		if adminID, _ := a.AdminID(); !c.OwnedBy(adminID) {
			return nil, domainCode.ErrCodeInvalid
		}
	}

	if _, err := s.deviceRepo.GetByDeviceID(ctx, req.DeviceID); err == nil {
		return nil, domainDevice.ErrDeviceAlreadyRegistered
	} else if !errors.Is(err, domainDevice.ErrDeviceNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	d := &domainDevice.Device{
		ID:              uuid.New(),
		DeviceID:        req.DeviceID,
		Model:           req.Model,
		Manufacturer:    req.Manufacturer,
		OSVersion:       req.OSVersion,
		IMEI:            req.IMEI,
		IsRooted:        req.IsRooted,
		Status:          domainDevice.StatusActive,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		activated, err := s.codes.Activate(ctx, req.Code)
		if err != nil {
			return err
		}
		d.DeviceCodeID = activated.ID
		return s.deviceRepo.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DeviceRegistered()
	logger.Info("Device registered",
		zap.String("device_id", d.DeviceID),
		zap.String("code_id", d.DeviceCodeID.String()),
		zap.String("actor", a.String()),
		zap.String("event", "device_registered"),
	)
	s.publish(ctx, event.Event{
		Type:       event.DeviceRegistered,
		Subject:    d.DeviceID,
		Actor:      a,
		OccurredAt: now,
		Data: map[string]string{
			"device_id":      d.DeviceID,
			"device_code_id": d.DeviceCodeID.String(),
		},
	})

	return ToDeviceResponse(d, now, s.presence.Window()), nil
}

// CheckStatus recomputes the device's lock state from current data before
// answering. An overdue installment or a failed security evaluation newer than
// the last status change locks the device.
func (s *Service) CheckStatus(ctx context.Context, a actor.Actor, deviceID string) (*StatusResponse, error) {
	d, err := s.visibleDevice(ctx, a, deviceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if a.Role == actor.RoleDevice {
		if err := s.presence.Touch(ctx, d.DeviceID, now); err != nil {
			logger.Warn("Failed to record device presence", zap.String("device_id", d.DeviceID), zap.Error(err))
		}
	}

	if err := s.lockIfOverdue(ctx, a, d, now); err != nil {
		return nil, err
	}

	if err := s.lockIfInsecure(ctx, a, d, now); err != nil {
		return nil, err
	}

	current, err := s.deviceRepo.GetByDeviceID(ctx, d.DeviceID)
	if err != nil {
		return nil, err
	}

	summary, err := s.payments.Summary(ctx, current.DeviceCodeID)
	if err != nil {
		return nil, err
	}

	s.attachPresence(ctx, current)

	return &StatusResponse{
		DeviceID:        current.DeviceID,
		Status:          current.Status,
		LockReason:      current.LockReason,
		NextPaymentDate: summary.NextDueDate,
		LastSeenAt:      current.LastSeenAt,
		Online:          current.IsOnline(now, s.presence.Window()),
	}, nil
}

func (s *Service) lockIfOverdue(ctx context.Context, a actor.Actor, d *domainDevice.Device, now time.Time) error {
	reason := domainDevice.ReasonPaymentOverdue
	locked := false

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		locked, err = s.deviceRepo.LockIfOverdue(ctx, d.ID, reason, now)
		if err != nil || !locked {
			return err
		}
		return s.codeRepo.SetLockReason(ctx, d.DeviceCodeID, &reason)
	})
	if err != nil {
		return err
	}

	if locked {
		s.transitioned(ctx, a, d, d.Status, domainDevice.StatusLocked, reason, TriggerOverdue, now)
		d.Status = domainDevice.StatusLocked
		d.LockReason = &reason
		d.StatusChangedAt = now
	}
	return nil
}

func (s *Service) lockIfInsecure(ctx context.Context, a actor.Actor, d *domainDevice.Device, now time.Time) error {
	if d.IsLocked() {
		return nil
	}

	eval, err := s.securityRepo.Latest(ctx, d.ID)
	if errors.Is(err, domainSecurity.ErrEvaluationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if eval.Passed || !eval.NewerThan(d.StatusChangedAt) {
		return nil
	}

	reason := eval.Reason
	from := d.Status
	locked := false
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		locked, err = s.deviceRepo.TransitionFrom(ctx, d.ID, from, domainDevice.StatusLocked, &reason, now)
		if err != nil || !locked {
			return err
		}
		return s.codeRepo.SetLockReason(ctx, d.DeviceCodeID, &reason)
	})
	if err != nil {
		return err
	}

	if locked {
		s.transitioned(ctx, a, d, from, domainDevice.StatusLocked, reason, TriggerSecurity, now)
	}
	return nil
}

// Lock is an administrative override. It is allowed from any state and is idempotent.
func (s *Service) Lock(ctx context.Context, a actor.Actor, deviceID string, req *LockDeviceRequest) (*DeviceResponse, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	req.Reason = utils.SanitizeText(req.Reason)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	d, err := s.visibleDevice(ctx, a, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.setStatus(ctx, a, d, domainDevice.StatusLocked, &req.Reason, TriggerAdmin); err != nil {
		return nil, err
	}
	return s.respond(ctx, d), nil
}

// Unlock is an administrative override. It also serves the all-paid signal.
func (s *Service) Unlock(ctx context.Context, a actor.Actor, deviceID string) (*DeviceResponse, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}

	d, err := s.visibleDevice(ctx, a, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.setStatus(ctx, a, d, domainDevice.StatusUnlocked, nil, TriggerAdmin); err != nil {
		return nil, err
	}
	return s.respond(ctx, d), nil
}

// HandlePlanCompleted unlocks the device bound to a fully paid code, if any.
func (s *Service) HandlePlanCompleted(ctx context.Context, a actor.Actor, codeID uuid.UUID) error {
	d, err := s.deviceRepo.GetByCodeID(ctx, codeID)
	if errors.Is(err, domainDevice.ErrDeviceNotFound) {
		logger.Info("Plan completed for a code with no device",
			zap.String("code_id", codeID.String()),
			zap.String("event", "plan_completed_unbound"),
		)
		return nil
	}
	if err != nil {
		return err
	}

	return s.setStatus(ctx, a, d, domainDevice.StatusUnlocked, nil, TriggerPlanComplete)
}

// LockForSecurity is called by the security evaluator when a posture check fails.
func (s *Service) LockForSecurity(ctx context.Context, a actor.Actor, deviceID string, reason string) error {
	d, err := s.deviceRepo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}
	return s.setStatus(ctx, a, d, domainDevice.StatusLocked, &reason, TriggerSecurity)
}

func (s *Service) Get(ctx context.Context, a actor.Actor, deviceID string) (*DeviceResponse, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}

	d, err := s.visibleDevice(ctx, a, deviceID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, d), nil
}

func (s *Service) List(ctx context.Context, a actor.Actor, filter *DeviceFilterRequest) (*DeviceListResponse, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	if err := utils.ValidateStruct(filter); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := &domainDevice.Filter{
		Status:   filter.Status,
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if !a.IsSuperAdmin() {
		adminID, _ := a.AdminID()
		domainFilter.SoldTo = &adminID
	}

	devices, total, err := s.deviceRepo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		responses[i] = *s.respond(ctx, d)
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	return &DeviceListResponse{
		Devices:    responses,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// setStatus writes an unconditional transition and mirrors the lock reason onto the code.
func (s *Service) setStatus(ctx context.Context, a actor.Actor, d *domainDevice.Device, to domainDevice.Status, reason *string, trigger string) error {
	if err := domainDevice.ValidateStatusTransition(d.Status, to); err != nil {
		return err
	}

	from := d.Status
	now := s.clock.Now()
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.deviceRepo.UpdateStatus(ctx, d.ID, to, reason, now); err != nil {
			return err
		}
		return s.codeRepo.SetLockReason(ctx, d.DeviceCodeID, reason)
	})
	if err != nil {
		return err
	}

	d.Status = to
	d.LockReason = reason
	d.StatusChangedAt = now
	d.UpdatedAt = now

	why := ""
	if reason != nil {
		why = *reason
	}
	s.transitioned(ctx, a, d, from, to, why, trigger, now)
	return nil
}

// transitioned records a committed transition. Inside a transaction the
// notification waits for the commit.
func (s *Service) transitioned(ctx context.Context, a actor.Actor, d *domainDevice.Device, from, to domainDevice.Status, reason, trigger string, at time.Time) {
	typ := event.DeviceUnlocked
	if to == domainDevice.StatusLocked {
		typ = event.DeviceLocked
	}
	e := event.Event{
		Type:       typ,
		Subject:    d.DeviceID,
		Actor:      a,
		OccurredAt: at,
		Data: event.DeviceTransition{
			DeviceID:     d.DeviceID,
			DeviceCodeID: d.DeviceCodeID.String(),
			From:         string(from),
			To:           string(to),
			Reason:       reason,
			Trigger:      trigger,
			At:           at,
		},
	}

	transaction.AfterCommit(ctx, func() {
		s.metrics.DeviceTransition(string(to), trigger)
		logger.Info("Device status changed",
			zap.String("device_id", d.DeviceID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("reason", reason),
			zap.String("trigger", trigger),
			zap.String("actor", a.String()),
			zap.String("event", "device_"+string(to)),
		)
		s.publish(context.WithoutCancel(ctx), e)
	})
}

// visibleDevice loads a device and hides it from admins who do not own its code.
func (s *Service) visibleDevice(ctx context.Context, a actor.Actor, deviceID string) (*domainDevice.Device, error) {
	d, err := s.deviceRepo.GetByDeviceID(ctx, utils.NormalizeIdentifier(deviceID))
	if err != nil {
		return nil, err
	}
	if !a.IsStaff() || a.IsSuperAdmin() {
		return d, nil
	}

	c, err := s.codeRepo.GetByID(ctx, d.DeviceCodeID)
	if err != nil {
		return nil, err
	}
	if adminID, ok := a.AdminID(); !ok || !c.OwnedBy(adminID) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	return d, nil
}

func (s *Service) attachPresence(ctx context.Context, d *domainDevice.Device) {
	seen, err := s.presence.LastSeen(ctx, d.DeviceID)
	if err != nil {
		logger.Warn("Failed to read device presence", zap.String("device_id", d.DeviceID), zap.Error(err))
		return
	}
	d.LastSeenAt = seen
}

func (s *Service) respond(ctx context.Context, d *domainDevice.Device) *DeviceResponse {
	s.attachPresence(ctx, d)
	return ToDeviceResponse(d, s.clock.Now(), s.presence.Window())
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
