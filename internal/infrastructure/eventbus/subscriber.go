package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type EventHandler interface {
	HandleMessage(*message.Message) error
}

// Subscriber runs a set of handlers against one topic on a shared router.
type Subscriber struct {
	router *message.Router
}

func NewSubscriber(router *message.Router) *Subscriber {
	return &Subscriber{router: router}
}

func (s *Subscriber) Register(handlerName, topic string, sub message.Subscriber, handler EventHandler) {
	s.router.AddNoPublisherHandler(handlerName, topic, sub, handler.HandleMessage)
}

// Run blocks until ctx is cancelled or the router fails.
func (s *Subscriber) Run(ctx context.Context) error {
	return s.router.Run(ctx)
}

func (s *Subscriber) Running() chan struct{} {
	return s.router.Running()
}

func (s *Subscriber) Close() error {
	return s.router.Close()
}
