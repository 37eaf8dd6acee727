package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic prefix shared by every cart item event.
const topicPrefix = "cart_item."

// TopicQuantityUpdated is published when quantity changes without a state change.
const TopicQuantityUpdated = topicPrefix + "quantity_updated"

// TopicForState returns the topic announcing that an item entered state,
// e.g. "cart_item.locked".
func TopicForState(state string) string {
	return topicPrefix + state
}

// Message is what subscribers receive. Payload holds the JSON-encoded value
// passed to Publish.
type Message struct {
	Topic       string          `json:"topic"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// ItemChanged is the payload published after a committed mutation.
type ItemChanged struct {
	ItemID     uuid.UUID `json:"item_id"`
	UserID     uuid.UUID `json:"user_id"`
	ProductID  uuid.UUID `json:"product_id"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	Version    int64     `json:"version"`
	Quantity   int       `json:"quantity"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
