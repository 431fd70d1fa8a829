package checkin

import (
	"context"
	"device-finance-backoffice/internal/domain/event"
	"device-finance-backoffice/internal/infrastructure/eventbus"
	"device-finance-backoffice/pkg/clock"
	"encoding/json"
	"fmt"

	ce "github.com/cloudevents/sdk-go/v2/event"
	"go.uber.org/zap"
)

// CommandForwarder pushes lock and unlock transitions to the affected device.
type CommandForwarder struct {
	sink   CommandSink
	prefix string
	qos    byte
	clock  clock.Clock
	logger *zap.Logger
}

func NewCommandForwarder(sink CommandSink, prefix string, qos byte, clk clock.Clock, logger *zap.Logger) *CommandForwarder {
	return &CommandForwarder{
		sink:   sink,
		prefix: prefix,
		qos:    qos,
		clock:  clk,
		logger: logger,
	}
}

// DispatchMap registers the forwarder for device transition events.
func (f *CommandForwarder) DispatchMap() map[string]func(context.Context, *ce.Event) error {
	return map[string]func(context.Context, *ce.Event) error{
		string(event.DeviceLocked):   f.forward(ActionLock),
		string(event.DeviceUnlocked): f.forward(ActionUnlock),
	}
}

func (f *CommandForwarder) forward(action string) func(context.Context, *ce.Event) error {
	return func(_ context.Context, e *ce.Event) error {
		body, err := eventbus.GetEventBody[event.DeviceTransition](e)
		if err != nil {
			f.logger.Error("Dropping transition event with unreadable body", zap.String("id", e.ID()), zap.Error(err))
			return nil
		}

		payload, err := json.Marshal(Command{
			Action:   action,
			Status:   body.To,
			Reason:   body.Reason,
			IssuedAt: f.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to encode command: %w", err)
		}

		// Retained so a device that is offline receives its latest command on reconnect.
		if err := f.sink.Publish(CommandTopic(f.prefix, body.DeviceID), f.qos, true, payload); err != nil {
			return fmt.Errorf("failed to publish %s command for %s: %w", action, body.DeviceID, err)
		}

		f.logger.Info("Device command sent",
			zap.String("device_id", body.DeviceID),
			zap.String("action", action),
			zap.String("trigger", body.Trigger),
			zap.String("event", "device_command_sent"),
		)
		return nil
	}
}
