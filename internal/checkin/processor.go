package checkin

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/internal/usecase/device"
	"device-finance-backoffice/internal/usecase/security"
	"device-finance-backoffice/pkg/clock"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const processTimeout = 10 * time.Second

// Evaluator is the security evaluator as seen by check-in processing.
type Evaluator interface {
	Evaluate(ctx context.Context, a actor.Actor, deviceID string, req *security.EvaluateRequest) (*security.EvaluationResponse, error)
}

// StatusChecker is the device lifecycle manager as seen by check-in processing.
type StatusChecker interface {
	CheckStatus(ctx context.Context, a actor.Actor, deviceID string) (*device.StatusResponse, error)
}

// CommandSink publishes raw MQTT payloads. *mqtt.Client satisfies it.
type CommandSink interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

type ProcessorConfig struct {
	Workers     int
	BufferSize  int
	TopicPrefix string
	QoS         byte
}

// Processor runs check-ins through a bounded queue and a fixed worker pool.
type Processor struct {
	evaluator Evaluator
	checker   StatusChecker
	commands  CommandSink
	cfg       ProcessorConfig
	clock     clock.Clock
	logger    *zap.Logger
	recorder  *metrics.Recorder

	checkInChan chan *CheckInMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	metrics *MetricsTracker
}

func NewProcessor(
	evaluator Evaluator,
	checker StatusChecker,
	commands CommandSink,
	cfg ProcessorConfig,
	clk clock.Clock,
	logger *zap.Logger,
	recorder *metrics.Recorder,
) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		evaluator:   evaluator,
		checker:     checker,
		commands:    commands,
		cfg:         cfg,
		clock:       clk,
		logger:      logger,
		recorder:    recorder,
		checkInChan: make(chan *CheckInMessage, cfg.BufferSize),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     NewMetricsTracker(),
	}
}

// Start starts the processor workers
func (p *Processor) Start() {
	p.logger.Info("Starting check-in processor",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("buffer_size", p.cfg.BufferSize),
	)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels in-flight work and waits for the workers. Queued messages are discarded.
func (p *Processor) Stop() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Info("Check-in processor stopped", zap.Int64("processed", p.metrics.Snapshot().MessagesProcessed))
	})
}

// Submit validates a check-in and queues it. A full queue drops the message.
func (p *Processor) Submit(topic string, msg *CheckInMessage) bool {
	if err := ValidateCheckIn(topic, msg, p.clock.Now()); err != nil {
		p.logger.Warn("Invalid check-in message", zap.String("topic", topic), zap.Error(err))
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesFailed++
		})
		p.recorder.CheckIn("invalid")
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	default:
	}

	select {
	case p.checkInChan <- msg:
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = len(p.checkInChan)
		})
		return true
	default:
		p.logger.Warn("Check-in buffer full, dropping message", zap.String("device_id", msg.DeviceID))
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesDropped++
		})
		p.recorder.CheckIn("dropped")
		return false
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case msg := <-p.checkInChan:
			start := time.Now()
			if err := p.process(msg); err != nil {
				p.logger.Warn("Failed to process check-in",
					zap.Int("worker", id),
					zap.String("device_id", msg.DeviceID),
					zap.Error(err),
				)
				p.metrics.Update(func(m *IngestMetrics) {
					m.MessagesFailed++
				})
				p.recorder.CheckIn("failed")
				continue
			}

			elapsed := time.Since(start)
			p.metrics.Update(func(m *IngestMetrics) {
				m.observe(elapsed, p.clock.Now())
				m.BufferSize = len(p.checkInChan)
			})
			p.recorder.CheckIn("processed")

		case <-p.ctx.Done():
			return
		}
	}
}

// process evaluates the reported posture, recomputes the lock state and tells
// the device the outcome.
func (p *Processor) process(msg *CheckInMessage) error {
	ctx, cancel := context.WithTimeout(p.ctx, processTimeout)
	defer cancel()

	a := actor.Device(msg.DeviceID)
	_, err := p.evaluator.Evaluate(ctx, a, msg.DeviceID, &security.EvaluateRequest{
		Root:              msg.Posture.Root,
		BootloaderLocked:  msg.Posture.BootloaderLocked,
		AttestationPassed: msg.Posture.AttestationPassed,
	})
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return fmt.Errorf("unregistered device: %w", err)
		}
		return fmt.Errorf("security evaluation: %w", err)
	}

	status, err := p.checker.CheckStatus(ctx, a, msg.DeviceID)
	if err != nil {
		return fmt.Errorf("status check: %w", err)
	}

	reason := ""
	if status.LockReason != nil {
		reason = *status.LockReason
	}
	return p.send(msg.DeviceID, Command{
		Action:          ActionStatus,
		Status:          string(status.Status),
		Reason:          reason,
		NextPaymentDate: status.NextPaymentDate,
		IssuedAt:        p.clock.Now(),
	})
}

func (p *Processor) send(deviceID string, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	if err := p.commands.Publish(CommandTopic(p.cfg.TopicPrefix, deviceID), p.cfg.QoS, false, payload); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}
	p.metrics.Update(func(m *IngestMetrics) {
		m.CommandsPublished++
	})
	return nil
}

// GetMetrics returns current metrics
func (p *Processor) GetMetrics() IngestMetrics {
	return p.metrics.Snapshot()
}
