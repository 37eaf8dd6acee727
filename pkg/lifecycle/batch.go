package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
)

// BatchFailure is one item the batch could not change.
type BatchFailure struct {
	ItemID uuid.UUID
	Err    error
}

// BatchResult lists the outcome for every requested item.
type BatchResult struct {
	Succeeded []*cartitem.Item
	Failed    []BatchFailure
}

// BatchUpdate applies op to every item inside one transaction. Each item runs
// in its own savepoint, so a failing item leaves the others intact; items op
// leaves unchanged count as succeeded. If every item fails the transaction is
// rolled back and ErrBatchRolledBack returned alongside the per-item
// failures. If the commit itself fails nothing is kept and every item is
// reported as failed.
func (c *Controller) BatchUpdate(ctx context.Context, ids []uuid.UUID, op Operation) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}

	type change struct {
		before, after *cartitem.Item
	}

	var (
		result  BatchResult
		changes []change
	)

	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, id := range ids {
			var ch change
			err := tx.Savepoint(ctx, func(ctx context.Context, sp Tx) error {
				before, err := c.load(ctx, sp, id)
				if err != nil {
					return err
				}
				after, err := apply(ctx, before, op)
				if errors.Is(err, errNoChange) {
					ch = change{before: before}
					return nil
				}
				if err != nil {
					return err
				}
				if err := sp.CompareAndSwap(ctx, before.Version, after); err != nil {
					if errors.Is(err, ErrVersionConflict) {
						return &ConcurrencyConflictError{ItemID: id}
					}
					return &PersistenceError{Op: "compare_and_swap", Err: err}
				}
				ch = change{before: before, after: after}
				return nil
			})
			if err != nil {
				result.Failed = append(result.Failed, BatchFailure{ItemID: id, Err: err})
				continue
			}
			if ch.after == nil {
				result.Succeeded = append(result.Succeeded, ch.before)
				continue
			}
			result.Succeeded = append(result.Succeeded, ch.after)
			changes = append(changes, ch)
		}

		if len(result.Succeeded) == 0 {
			return ErrBatchRolledBack
		}
		return nil
	})

	switch {
	case errors.Is(err, ErrBatchRolledBack):
		c.metrics.batch("rolled_back")
		return result, ErrBatchRolledBack
	case err != nil:
		c.metrics.batch("commit_failed")
		c.logger.ErrorContext(ctx, "batch commit failed", logger.Error(err))
		perr := &PersistenceError{Op: "batch_commit", Err: err}
		failed := make([]BatchFailure, 0, len(ids))
		for _, id := range ids {
			failed = append(failed, BatchFailure{ItemID: id, Err: perr})
		}
		return BatchResult{Failed: failed}, perr
	}

	if len(result.Failed) > 0 {
		c.metrics.batch("partial")
	} else {
		c.metrics.batch("committed")
	}
	for _, ch := range changes {
		c.emit(ctx, ch.before, ch.after, DefaultActor)
	}
	return result, nil
}
