// Package audit records every committed cart item mutation and reads the
// trail back.
//
// The Recorder stamps an Event with an ID, timestamp and context-derived
// fields (actor, request ID), validates it and hands it to a Storage:
//
//	storage := audit.NewMemoryStorage()
//	recorder := audit.NewRecorder(storage,
//	    audit.WithActorExtractor(actorFromContext),
//	)
//
//	err := recorder.Record(ctx, audit.Event{
//	    ItemID:    item.ID,
//	    Action:    audit.ActionTransition,
//	    FromState: "active",
//	    ToState:   "locked",
//	    Version:   item.Version,
//	})
//
// # Storage backends
//
//   - MemoryStorage keeps events in a slice; useful in tests.
//   - PostgresStorage writes to the cart_item_audit_events table created by
//     the migrations in the repository root.
//   - AsyncWriter wraps any batch-capable backend, collecting events from
//     concurrent callers and flushing them by size or timeout. Close drains
//     the queue; call it on shutdown.
//
// # Reconstruction
//
// Reader.History returns the successful events for one item, oldest first,
// and Replay folds them into a Snapshot (final state and version). Replay
// rejects trails with version gaps, so a Snapshot that replays cleanly
// matches what the store committed.
//
// Recording is best effort from the lifecycle package's point of view: a
// failed Record is logged and never reverses a committed transition.
package audit
