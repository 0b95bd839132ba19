package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
)

// EventHandler receives decoded domain events. *engine.Engine satisfies it.
type EventHandler interface {
	OnEvent(ctx context.Context, eventType string, payload map[string]any) ([]*automation.Execution, error)
}

// Listener feeds events from a subscriber to an EventHandler
type Listener struct {
	subscriber message.Subscriber
	handler    EventHandler
	logger     zerolog.Logger
}

// NewListener creates a listener on Topic
func NewListener(sub message.Subscriber, handler EventHandler, logger zerolog.Logger) *Listener {
	return &Listener{
		subscriber: sub,
		handler:    handler,
		logger:     logger.With().Str("component", "eventbus").Logger(),
	}
}

// Run consumes messages until ctx is cancelled or the subscription closes.
// Messages that cannot be decoded, or name an unknown event type, are acked
// and dropped. Handler failures are nacked for redelivery.
func (l *Listener) Run(ctx context.Context) error {
	messages, err := l.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	l.logger.Info().Str("topic", Topic).Msg("Listening for events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			l.handle(ctx, msg)
		}
	}
}

func (l *Listener) handle(ctx context.Context, msg *message.Message) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		l.logger.Warn().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping malformed event")
		msg.Ack()
		return
	}

	if event.Type == "" {
		event.Type = msg.Metadata.Get(EventTypeMetadataKey)
	}

	execs, err := l.handler.OnEvent(ctx, event.Type, event.Payload)
	switch {
	case errors.Is(err, automation.ErrUnknownTrigger):
		l.logger.Warn().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("Dropping event with unknown type")
		msg.Ack()
	case err != nil:
		l.logger.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("Event handling failed")
		msg.Nack()
	default:
		l.logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Int("executions", len(execs)).
			Msg("Event handled")
		msg.Ack()
	}
}
