package event

//go:generate mockgen -source=event.go -destination=mock/publisher_mock.go -package=mock

import (
	"context"
	"time"

	"device-finance-backoffice/internal/domain/actor"
)

type Type string

const (
	CodesGenerated         Type = "device_code.generated"
	CodeSold               Type = "device_code.sold"
	DeviceRegistered       Type = "device.registered"
	DeviceLocked           Type = "device.locked"
	DeviceUnlocked         Type = "device.unlocked"
	ScheduleCreated        Type = "payment.schedule_created"
	PaymentCompleted       Type = "payment.completed"
	PlanCompleted          Type = "payment.plan_completed"
	SecurityEvaluationFail Type = "security.evaluation_failed"
)

// Event is a lifecycle notification emitted after the state change it
// describes has been committed.
type Event struct {
	Type       Type
	Source     string
	Subject    string
	Actor      actor.Actor
	OccurredAt time.Time
	Data       interface{}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher discards events. It is used when the event bus is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}

// DeviceTransition is the payload of DeviceLocked and DeviceUnlocked.
type DeviceTransition struct {
	DeviceID     string    `json:"device_id"`
	DeviceCodeID string    `json:"device_code_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Reason       string    `json:"reason,omitempty"`
	Trigger      string    `json:"trigger"`
	At           time.Time `json:"at"`
}
