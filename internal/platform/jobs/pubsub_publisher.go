package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	domain "github.com/shutterworks/api/internal/domain"
)

// PubSubEventPublisher publishes domain events to a Pub/Sub topic. Events are
// advisory; callers treat publish failures as log-and-continue.
type PubSubEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Publish enqueues the event on the configured topic and waits for the server
// acknowledgement.
func (p *PubSubEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}
	if event == nil {
		return errors.New("pubsub event publisher: event is required")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}

	attrs := map[string]string{"event": event.EventName()}
	for key, value := range event.Attributes() {
		setAttr(attrs, key, value)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventName(), err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
