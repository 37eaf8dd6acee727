package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Actions recorded for cart items.
const (
	ActionTransition     = "cart_item.transition"
	ActionQuantityUpdate = "cart_item.quantity_updated"
)

// Event is a single audit entry for a cart item mutation.
type Event struct {
	ID        string         `json:"id"`
	ItemID    uuid.UUID      `json:"item_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Action    string         `json:"action"`
	FromState string         `json:"from_state,omitempty"`
	ToState   string         `json:"to_state,omitempty"`
	Actor     string         `json:"actor"`
	Version   int64          `json:"version"`
	Result    Result         `json:"result"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	if e.ItemID == uuid.Nil {
		return fmt.Errorf("%w: item id is required", ErrEventValidation)
	}
	return nil
}

// Criteria filters events returned by Storage.Query.
// Zero values mean "no filter"; events are returned oldest first.
type Criteria struct {
	ItemID uuid.UUID
	Action string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// Matches reports whether e satisfies every filter set on c.
func (c Criteria) Matches(e Event) bool {
	if c.ItemID != uuid.Nil && e.ItemID != c.ItemID {
		return false
	}
	if c.Action != "" && e.Action != c.Action {
		return false
	}
	if !c.Since.IsZero() && e.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && !e.CreatedAt.Before(c.Until) {
		return false
	}
	return true
}
