package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	ce "github.com/cloudevents/sdk-go/v2/event"
	"go.uber.org/zap"
)

// AnyKey registers a fallback handler for event types without their own entry.
const AnyKey = "*"

type CloudEventHandler struct {
	Logger      *zap.Logger
	DispatchMap map[string]func(context.Context, *ce.Event) error
}

func (h CloudEventHandler) HandleMessage(m *message.Message) error {
	cloudEvent, err := ParseCloudEvent(m.Payload)
	if err != nil {
		h.Logger.Error("Dropping malformed cloud event", zap.String("message_id", m.UUID), zap.Error(err))
		return nil
	}

	handler, ok := h.DispatchMap[cloudEvent.Type()]
	if !ok {
		handler, ok = h.DispatchMap[AnyKey]
		if !ok {
			h.Logger.Debug("No handler found for event type", zap.String("type", cloudEvent.Type()))
			return nil
		}
	}

	if err := handler(m.Context(), cloudEvent); err != nil {
		h.Logger.Error("Something went wrong while handling event",
			zap.String("type", cloudEvent.Type()),
			zap.String("id", cloudEvent.ID()),
			zap.Error(err),
		)
		return fmt.Errorf("handling %s: %w", cloudEvent.Type(), err)
	}
	return nil
}
