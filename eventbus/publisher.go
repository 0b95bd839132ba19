package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sicko7947/automation"
)

// Publisher publishes domain events
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher creates a publisher writing to Topic
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{publisher: pub}
}

// Publish sends one domain event. The event type must be a known trigger kind.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	if _, err := automation.ParseTriggerKind(eventType); err != nil {
		return fmt.Errorf("event type %q: %w", eventType, err)
	}

	event := Event{
		ID:         watermill.NewULID(),
		Type:       eventType,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := message.NewMessage("msg-"+event.ID, body)
	msg.Metadata.Set(EventTypeMetadataKey, eventType)
	msg.Metadata.Set(EventIDMetadataKey, event.ID)
	msg.SetContext(ctx)

	return p.publisher.Publish(Topic, msg)
}

// Close closes the underlying publisher
func (p *Publisher) Close() error {
	return p.publisher.Close()
}
