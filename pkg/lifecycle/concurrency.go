package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
)

// runExclusive holds a lease for the load-change-commit cycle and gives it
// back before the change is emitted. The lease wait ignores caller
// cancellation and is bounded by the lock timeout alone. The commit is still a compare-and-swap, so a writer that skipped
// the lease cannot be overwritten silently.
func (c *Controller) runExclusive(ctx context.Context, id uuid.UUID, op Operation, cfg callConfig) (*cartitem.Item, bool, error) {
	timeout := cfg.lockTimeout
	if timeout <= 0 {
		timeout = c.lockTimeout
	}

	lockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := c.now()
	lease, err := c.locker.Acquire(lockCtx, id)
	waited := c.now().Sub(start)
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
			c.metrics.waited(waited, true)
			c.logger.WarnContext(ctx, "exclusive lock timed out",
				logger.ItemID(id),
				logger.Duration(timeout),
			)
			return nil, false, &LockTimeoutError{ItemID: id, Timeout: timeout}
		}
		return nil, false, &PersistenceError{Op: "acquire_lock", Err: err}
	}
	c.metrics.waited(waited, false)

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := c.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			c.logger.WarnContext(ctx, "releasing exclusive lock failed",
				logger.ItemID(id),
				logger.Error(err),
			)
		}
	}
	defer release()

	before, err := c.load(ctx, c.store, id)
	if err != nil {
		return nil, false, err
	}

	next, err := apply(ctx, before, op)
	if errors.Is(err, errNoChange) {
		return before, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := c.store.CompareAndSwap(ctx, before.Version, next); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			c.metrics.conflict(cfg.policy)
			return nil, false, &ConcurrencyConflictError{ItemID: id}
		}
		return nil, false, &PersistenceError{Op: "compare_and_swap", Err: err}
	}

	// The lease only guards the commit; sinks run without it.
	release()
	c.emit(ctx, before, next, cfg.actor)
	return next, true, nil
}

// runOptimistic commits with a version check and handles a lost race per
// the call's policy. Domain rejections are returned at once and never retried.
func (c *Controller) runOptimistic(ctx context.Context, id uuid.UUID, op Operation, cfg callConfig) (*cartitem.Item, bool, error) {
	budget := c.maxRetries
	switch cfg.policy {
	case PolicyRetry:
	case PolicyRaise:
		budget = 0
	case PolicyMerge:
		if cfg.merge == nil {
			return nil, false, ErrMergeFuncRequired
		}
		budget = 1
	default:
		return nil, false, ErrUnknownPolicy
	}

	var (
		lastErr error
		lost    *lostWrite
	)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		item, changed, err := c.tryOptimistic(ctx, id, op, cfg, lost)
		if err == nil {
			return item, changed, nil
		}

		var conflict *lostWrite
		if errors.As(err, &conflict) {
			c.metrics.conflict(cfg.policy)
			if cfg.policy == PolicyMerge && lost == nil {
				lost = conflict
			}
			err = &ConcurrencyConflictError{ItemID: id}
		} else if !IsPersistenceError(err) {
			return nil, false, err
		}
		lastErr = err

		if cfg.policy == PolicyRaise {
			return nil, false, lastErr
		}
		if attempt > budget {
			c.logger.WarnContext(ctx, "giving up on optimistic update",
				logger.ItemID(id),
				logger.Attempt(attempt),
				logger.Policy(cfg.policy.String()),
				logger.Error(lastErr),
			)
			return nil, false, &MaxRetriesExceededError{ItemID: id, Attempts: attempt, Err: lastErr}
		}

		c.metrics.retry()
		c.logger.DebugContext(ctx, "retrying optimistic update",
			logger.ItemID(id),
			logger.Attempt(attempt),
			logger.Policy(cfg.policy.String()),
		)
		if err := sleep(ctx, c.baseDelay*time.Duration(attempt)); err != nil {
			return nil, false, err
		}
	}
}

// lostWrite is the internal signal that a compare-and-swap lost; it keeps
// what the failed attempt started from and tried to store.
type lostWrite struct {
	base      *cartitem.Item
	attempted *cartitem.Item
}

func (l *lostWrite) Error() string {
	return ErrVersionConflict.Error()
}

// tryOptimistic makes one load-change-commit pass. When lost is set the pass
// reconciles that write onto the latest version instead of running op.
func (c *Controller) tryOptimistic(ctx context.Context, id uuid.UUID, op Operation, cfg callConfig, lost *lostWrite) (*cartitem.Item, bool, error) {
	before, err := c.load(ctx, c.store, id)
	if err != nil {
		return nil, false, err
	}

	// A lost transition has no fields to merge and simply re-runs op.
	if lost != nil && lost.attempted.State == lost.base.State {
		op = c.engine.UpdateOp(func(latest *cartitem.Item) error {
			return cfg.merge(lost.base, lost.attempted, latest)
		})
	}

	next, err := apply(ctx, before, op)
	if errors.Is(err, errNoChange) {
		return before, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := c.store.CompareAndSwap(ctx, before.Version, next); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, false, &lostWrite{base: before, attempted: next}
		}
		return nil, false, &PersistenceError{Op: "compare_and_swap", Err: err}
	}

	c.emit(ctx, before, next, cfg.actor)
	return next, true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
