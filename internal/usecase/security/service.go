package security

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/domain/event"
	domainSecurity "device-finance-backoffice/internal/domain/security"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/pkg/clock"
	"device-finance-backoffice/pkg/utils"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventSource = "device-finance-backoffice/security"

// Locker is the device lifecycle manager's entry point for security locks.
// The evaluator never writes device status itself.
type Locker interface {
	LockForSecurity(ctx context.Context, a actor.Actor, deviceID string, reason string) error
}

type Service struct {
	securityRepo domainSecurity.Repository
	deviceRepo   domainDevice.Repository
	locker       Locker
	publisher    event.Publisher
	metrics      *metrics.Recorder
	clock        clock.Clock
}

func NewService(
	securityRepo domainSecurity.Repository,
	deviceRepo domainDevice.Repository,
	locker Locker,
	publisher event.Publisher,
	recorder *metrics.Recorder,
	clk clock.Clock,
) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &Service{
		securityRepo: securityRepo,
		deviceRepo:   deviceRepo,
		locker:       locker,
		publisher:    publisher,
		metrics:      recorder,
		clock:        clk,
	}
}

// Evaluate checks the reported posture against the device's declared root flag
// and persists the outcome. A failed evaluation locks the device.
func (s *Service) Evaluate(ctx context.Context, a actor.Actor, deviceID string, req *EvaluateRequest) (*EvaluationResponse, error) {
	d, err := s.deviceRepo.GetByDeviceID(ctx, utils.NormalizeIdentifier(deviceID))
	if err != nil {
		return nil, err
	}

	eval := domainSecurity.Evaluate(d.IsRooted, req.Posture())
	eval.ID = uuid.New()
	eval.DeviceID = d.ID
	eval.EvaluatedAt = s.clock.Now()

	if err := s.securityRepo.Save(ctx, &eval); err != nil {
		return nil, err
	}
	s.metrics.SecurityEvaluation(eval.Passed)

	if eval.Passed {
		logger.Debug("Security evaluation passed",
			zap.String("device_id", d.DeviceID),
			zap.String("actor", a.String()),
		)
		return ToEvaluationResponse(d.DeviceID, &eval), nil
	}

	logger.Warn("Security evaluation failed",
		zap.String("device_id", d.DeviceID),
		zap.String("reason", eval.Reason),
		zap.String("actor", a.String()),
		zap.String("event", "security_evaluation_failed"),
	)

	if err := s.locker.LockForSecurity(ctx, a, d.DeviceID, eval.Reason); err != nil {
		return nil, fmt.Errorf("failed to lock device after security evaluation: %w", err)
	}

	s.publish(ctx, event.Event{
		Type:       event.SecurityEvaluationFail,
		Subject:    d.DeviceID,
		Actor:      a,
		OccurredAt: eval.EvaluatedAt,
		Data: map[string]string{
			"device_id":     d.DeviceID,
			"evaluation_id": eval.ID.String(),
			"category":      string(eval.Category),
			"reason":        eval.Reason,
		},
	})

	return ToEvaluationResponse(d.DeviceID, &eval), nil
}

// Latest returns the most recent evaluation of a device.
func (s *Service) Latest(ctx context.Context, deviceID string) (*EvaluationResponse, error) {
	d, err := s.deviceRepo.GetByDeviceID(ctx, utils.NormalizeIdentifier(deviceID))
	if err != nil {
		return nil, err
	}

	eval, err := s.securityRepo.Latest(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return ToEvaluationResponse(d.DeviceID, eval), nil
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
