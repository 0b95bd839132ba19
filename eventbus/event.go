// Package eventbus carries domain events from producers to the engine over
// watermill, either in process or through Kafka.
package eventbus

import (
	"time"
)

// Topic is the topic domain events are published to
const Topic = "automation.events"

// Metadata keys set on every published message
const (
	EventTypeMetadataKey = "event_type"
	EventIDMetadataKey   = "event_id"
)

// Event is the wire form of a domain event
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurredAt"`
}
