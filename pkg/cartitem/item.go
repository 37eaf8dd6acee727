package cartitem

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit caps the per-item transition history kept on the row.
// The audit trail, not this ring, is the record of truth.
const DefaultHistoryLimit = 50

// HistoryEntry is a single transition recorded on the item itself.
type HistoryEntry struct {
	From  State     `json:"from_state"`
	To    State     `json:"to_state"`
	Actor string    `json:"actor"`
	At    time.Time `json:"timestamp"`
}

// Item is a cart line item. It carries no behavior beyond read-only predicates;
// state changes go through the lifecycle package.
type Item struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"item_id"`

	State   State `json:"state"`
	Version int64 `json:"version"`

	LockedAt     *time.Time `json:"locked_at,omitempty"`
	LockDeadline *time.Time `json:"lock_deadline,omitempty"`

	Quantity   int   `json:"quantity"`
	UnitPrice  int64 `json:"unit_price"`  // minor currency units
	TotalPrice int64 `json:"total_price"` // always UnitPrice * Quantity

	CancellationReason string         `json:"cancellation_reason,omitempty"`
	History            []HistoryEntry `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an active item at version 0.
func New(userID, productID uuid.UUID, quantity int, unitPrice int64, now time.Time) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return nil, ErrInvalidUnitPrice
	}

	return &Item{
		ID:         uuid.New(),
		UserID:     userID,
		ProductID:  productID,
		State:      Active,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: CalculateTotal(unitPrice, quantity),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CalculateTotal is the single definition of an item's total price.
func CalculateTotal(unitPrice int64, quantity int) int64 {
	return unitPrice * int64(quantity)
}

// SetQuantity updates quantity and total together.
func (i *Item) SetQuantity(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.Quantity = quantity
	i.TotalPrice = CalculateTotal(i.UnitPrice, quantity)
	return nil
}

// AppendHistory adds an entry, dropping the oldest ones once limit is reached.
// A non-positive limit falls back to DefaultHistoryLimit.
func (i *Item) AppendHistory(entry HistoryEntry, limit int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	i.History = append(i.History, entry)
	if over := len(i.History) - limit; over > 0 {
		i.History = append(i.History[:0:0], i.History[over:]...)
	}
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.LockedAt = cloneTime(i.LockedAt)
	c.LockDeadline = cloneTime(i.LockDeadline)
	if i.History != nil {
		c.History = make([]HistoryEntry, len(i.History))
		copy(c.History, i.History)
	}
	return &c
}

func (i *Item) IsActive() bool    { return i.State == Active }
func (i *Item) IsLocked() bool    { return i.State == Locked }
func (i *Item) IsPurchased() bool { return i.State == Purchased }
func (i *Item) IsCancelled() bool { return i.State == Cancelled }
func (i *Item) IsExpired() bool   { return i.State == Expired }
func (i *Item) IsAbandoned() bool { return i.State == Abandoned }

func (i *Item) IsPurchasable() bool { return IsPurchasable(i.State) }
func (i *Item) IsMutable() bool     { return IsMutable(i.State) }
func (i *Item) IsFinal() bool       { return IsFinal(i.State) }

// LockExpired reports whether the item is locked and its deadline has passed.
func (i *Item) LockExpired(now time.Time) bool {
	return i.State == Locked && i.LockDeadline != nil && now.After(*i.LockDeadline)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
