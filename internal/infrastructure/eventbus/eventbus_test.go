package eventbus

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/domain/event"
	"testing"
	"time"

	ce "github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuildCloudEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cloudEvent, err := BuildCloudEvent(event.Event{
		Type:       event.DeviceLocked,
		Source:     "device-finance/devices",
		Subject:    "hw-1",
		Actor:      actor.System(),
		OccurredAt: at,
		Data:       event.DeviceTransition{DeviceID: "hw-1", From: "active", To: "locked", Trigger: "overdue"},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0", cloudEvent.SpecVersion())
	assert.Equal(t, string(event.DeviceLocked), cloudEvent.Type())
	assert.Equal(t, "hw-1", cloudEvent.Subject())
	assert.Equal(t, "system", cloudEvent.Extensions()[extensionActor])
	assert.True(t, cloudEvent.Time().Equal(at))

	body, err := GetEventBody[event.DeviceTransition](&cloudEvent)
	require.NoError(t, err)
	assert.Equal(t, "locked", body.To)
}

func TestPublishDispatchesByType(t *testing.T) {
	logger := zaptest.NewLogger(t)
	pub, sub := NewGoChannelPubSub(logger)

	router, err := NewMessageRouter(logger)
	require.NoError(t, err)

	locked := make(chan string, 1)
	fallback := make(chan string, 1)
	subscriber := NewSubscriber(router)
	subscriber.Register("test", Topic, sub, CloudEventHandler{
		Logger: logger,
		DispatchMap: map[string]func(context.Context, *ce.Event) error{
			string(event.DeviceLocked): func(_ context.Context, e *ce.Event) error {
				locked <- e.Subject()
				return nil
			},
			AnyKey: func(_ context.Context, e *ce.Event) error {
				fallback <- e.Type()
				return nil
			},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = subscriber.Run(ctx) }()
	<-subscriber.Running()

	publisher := NewCloudEventPublisher(pub, Topic)
	require.NoError(t, publisher.Publish(ctx, event.Event{Type: event.DeviceLocked, Subject: "hw-1", OccurredAt: time.Now().UTC()}))
	require.NoError(t, publisher.Publish(ctx, event.Event{Type: event.CodeSold, Subject: "code", OccurredAt: time.Now().UTC()}))

	select {
	case subject := <-locked:
		assert.Equal(t, "hw-1", subject)
	case <-time.After(5 * time.Second):
		t.Fatal("device.locked was not dispatched")
	}

	select {
	case typ := <-fallback:
		assert.Equal(t, string(event.CodeSold), typ)
	case <-time.After(5 * time.Second):
		t.Fatal("fallback handler was not invoked")
	}
}
