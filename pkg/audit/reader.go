package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Reader reads the audit trail back.
type Reader struct {
	storage Storage
}

// NewReader creates a new audit reader
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find retrieves audit events based on the criteria
func (r *Reader) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	return r.storage.Query(ctx, criteria)
}

// History returns every successful event recorded for an item, oldest first.
func (r *Reader) History(ctx context.Context, itemID uuid.UUID) ([]Event, error) {
	events, err := r.storage.Query(ctx, Criteria{ItemID: itemID})
	if err != nil {
		return nil, err
	}

	out := events[:0:0]
	for _, e := range events {
		if e.Result == ResultSuccess {
			out = append(out, e)
		}
	}
	return out, nil
}

// Snapshot is the item state reconstructed from its audit trail.
type Snapshot struct {
	ItemID  uuid.UUID
	State   string
	Version int64
	Events  int
}

// Replay folds an item's successful events, oldest first, into a Snapshot.
// Versions must increase by exactly one from event to event; a gap means the
// trail is incomplete and is reported as ErrReplayOutOfOrder.
func Replay(events []Event) (Snapshot, error) {
	var snap Snapshot

	for i, e := range events {
		if i == 0 {
			snap.ItemID = e.ItemID
		} else {
			if e.ItemID != snap.ItemID {
				return snap, ErrReplayMixedItems
			}
			if e.Version != snap.Version+1 {
				return snap, fmt.Errorf("%w: version %d follows %d", ErrReplayOutOfOrder, e.Version, snap.Version)
			}
		}

		snap.Version = e.Version
		if e.ToState != "" {
			snap.State = e.ToState
		}
		snap.Events++
	}

	return snap, nil
}
