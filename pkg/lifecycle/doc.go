// Package lifecycle drives cart items through their states and keeps
// concurrent writers from losing each other's changes.
//
// The Engine owns the rules: which transitions exist, which states are final,
// which business rules and inventory checks gate purchase and cancellation,
// and what a transition stamps on the item (lock window, history entry,
// version bump). It works on in-memory items and never persists.
//
// The Controller owns persistence and concurrency. Every call loads the item,
// lets an Operation change a private copy and commits it with a version
// compare-and-swap, in one of two modes:
//
//   - Exclusive: a lease from the Locker is held for the whole cycle. The wait
//     is bounded by the lock timeout and is not cut short by the caller's
//     context. Leases left behind by crashed holders are reclaimed once stale.
//   - Optimistic: no lease. A lost race is resolved by the ConflictPolicy:
//     PolicyRaise fails fast, PolicyRetry reloads and re-runs with linear
//     backoff, PolicyMerge reconciles the lost write with a MergeFunc and
//     tries once more.
//
// BatchUpdate runs one Operation over many items in a single transaction with
// a savepoint per item.
//
// Audit records and events are emitted only after a commit succeeds, and
// their failures are logged rather than returned.
//
// Basic usage:
//
//	engine := lifecycle.NewEngine(
//		lifecycle.WithValidator(rules.NewCartValidator()),
//		lifecycle.WithInventory(stock),
//	)
//	ctrl, err := lifecycle.NewController(engine, store, locker,
//		lifecycle.WithAuditSink(recorder),
//		lifecycle.WithPublisher(publisher),
//	)
//	if err != nil {
//		return err
//	}
//
//	item, err := ctrl.LockForPurchase(ctx, id, 5*time.Minute)
//	if lifecycle.IsLockTimeout(err) {
//		// somebody else is checking out this item
//	}
//
//	item, err = ctrl.SafeQuantityUpdate(ctx, id, 3, lifecycle.Optimistic(lifecycle.PolicyRetry))
package lifecycle
