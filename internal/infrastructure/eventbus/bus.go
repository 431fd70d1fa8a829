package eventbus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// Topic carries every lifecycle event. Consumers dispatch on the CloudEvent type.
const Topic = "lifecycle"

func NewGoChannelPubSub(l *zap.Logger) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, NewLoggerAdapter(l.With(zap.String("subsystem-provider", "GoChannel - PubSub"))))
	return pubSub, pubSub
}

func NewMessageRouter(l *zap.Logger) (*message.Router, error) {
	lEventBus := NewLoggerAdapter(l.With(zap.String("subsystem-provider", "EventBus - Router")))

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, lEventBus)
	if err != nil {
		return nil, fmt.Errorf("could not create event bus router: %w", err)
	}

	// Middlewares apply in the order added; the recoverer wraps the rest.
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			Logger:          lEventBus,
		}.Middleware,
	)

	return router, nil
}
