package eventbus

import (
	"context"
	"device-finance-backoffice/internal/domain/event"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	ce "github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
)

const (
	extensionActor     = "actorid"
	extensionActorRole = "actorrole"
)

// CloudEventPublisher serialises domain events as CloudEvents onto a watermill publisher.
type CloudEventPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewCloudEventPublisher(publisher message.Publisher, topic string) *CloudEventPublisher {
	return &CloudEventPublisher{publisher: publisher, topic: topic}
}

func (p *CloudEventPublisher) Publish(ctx context.Context, e event.Event) error {
	cloudEvent, err := BuildCloudEvent(e)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(cloudEvent)
	if err != nil {
		return fmt.Errorf("could not serialise cloud event: %w", err)
	}

	msg := message.NewMessage(cloudEvent.ID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", string(e.Type))
	if cid := middleware.MessageCorrelationID(msg); cid == "" {
		middleware.SetCorrelationID(cloudEvent.ID(), msg)
	}

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("could not publish %s: %w", e.Type, err)
	}
	return nil
}

func BuildCloudEvent(e event.Event) (ce.Event, error) {
	cloudEvent := cloudevents.NewEvent()
	cloudEvent.SetSpecVersion("1.0")
	cloudEvent.SetID(uuid.NewString())
	cloudEvent.SetType(string(e.Type))
	cloudEvent.SetTime(e.OccurredAt)

	source := e.Source
	if source == "" {
		source = "source://unknown"
	}
	cloudEvent.SetSource(source)

	if e.Subject != "" {
		cloudEvent.SetSubject(e.Subject)
	}
	if e.Actor.ID != "" {
		cloudEvent.SetExtension(extensionActor, e.Actor.ID)
		cloudEvent.SetExtension(extensionActorRole, string(e.Actor.Role))
	}

	if err := cloudEvent.SetData(cloudevents.ApplicationJSON, e.Data); err != nil {
		return cloudEvent, fmt.Errorf("could not encode event data: %w", err)
	}
	return cloudEvent, nil
}

func ParseCloudEvent(msg []byte) (*ce.Event, error) {
	var cloudEvent ce.Event
	if err := json.Unmarshal(msg, &cloudEvent); err != nil {
		return nil, err
	}
	return &cloudEvent, nil
}

func GetEventBody[E any](cloudEvent *ce.Event) (*E, error) {
	var elem *E
	if cloudEvent == nil {
		return nil, fmt.Errorf("cloud event is null")
	}

	if cloudEvent.Data() == nil {
		return nil, fmt.Errorf("cloud event data is null")
	}

	err := json.Unmarshal(cloudEvent.Data(), &elem)
	return elem, err
}
