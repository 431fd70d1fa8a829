package checkin

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/domain/event"
	"device-finance-backoffice/internal/infrastructure/eventbus"
	"device-finance-backoffice/pkg/clock"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestForwarderSendsRetainedCommands(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	f := NewCommandForwarder(sink, "devices", 1, clock.NewManual(now), zaptest.NewLogger(t))

	tests := []struct {
		typ        event.Type
		to         string
		wantAction string
	}{
		{typ: event.DeviceLocked, to: "locked", wantAction: ActionLock},
		{typ: event.DeviceUnlocked, to: "unlocked", wantAction: ActionUnlock},
	}

	for i, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			cloudEvent, err := eventbus.BuildCloudEvent(event.Event{
				Type:       tt.typ,
				Source:     "test",
				Subject:    "DEV-1",
				Actor:      actor.System(),
				OccurredAt: now,
				Data:       event.DeviceTransition{DeviceID: "DEV-1", To: tt.to, Reason: "r", Trigger: "admin", At: now},
			})
			require.NoError(t, err)

			handler := f.DispatchMap()[string(tt.typ)]
			require.NotNil(t, handler)
			require.NoError(t, handler(context.Background(), &cloudEvent))

			msgs := sink.all()
			require.Len(t, msgs, i+1)
			assert.Equal(t, "devices/DEV-1/command", msgs[i].topic)
			assert.True(t, msgs[i].retained)

			var cmd Command
			require.NoError(t, json.Unmarshal(msgs[i].payload, &cmd))
			assert.Equal(t, tt.wantAction, cmd.Action)
			assert.Equal(t, tt.to, cmd.Status)
			assert.Equal(t, now, cmd.IssuedAt)
		})
	}
}

func TestForwarderIgnoresOtherEvents(t *testing.T) {
	f := NewCommandForwarder(&fakeSink{}, "devices", 1, clock.New(), zaptest.NewLogger(t))
	_, ok := f.DispatchMap()[string(event.PaymentCompleted)]
	assert.False(t, ok)
}
