package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
)

// Controller is the public entry point for changing cart items. It loads an
// item, lets the Engine change a private copy, and commits it under either an
// exclusive lease or an optimistic version check. Audit records and events go
// out only after a successful commit.
type Controller struct {
	engine    *Engine
	store     Store
	locker    Locker
	audit     AuditSink
	publisher Publisher
	logger    *slog.Logger
	metrics   *Metrics
	queue     *emitQueue
	queueSize int

	lockTimeout time.Duration
	maxRetries  int
	baseDelay   time.Duration
	now         func() time.Time
}

func NewController(engine *Engine, store Store, locker Locker, opts ...Option) (*Controller, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if locker == nil {
		return nil, ErrNilLocker
	}

	c := &Controller{
		engine:      engine,
		store:       store,
		locker:      locker,
		logger:      slog.Default(),
		lockTimeout: DefaultLockTimeout,
		maxRetries:  DefaultMaxRetries,
		baseDelay:   DefaultBaseDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("cart_lifecycle"))
	if c.queueSize > 0 {
		c.queue = newEmitQueue(c.queueSize)
	}
	return c, nil
}

// Engine returns the engine operations for BatchUpdate are built from.
func (c *Controller) Engine() *Engine {
	return c.engine
}

// Get loads an item without changing it.
func (c *Controller) Get(ctx context.Context, id uuid.UUID) (*cartitem.Item, error) {
	return c.load(ctx, c.store, id)
}

// AttemptTransition moves the item to state to. Transitions into locked and
// purchased default to exclusive mode; everything else defaults to optimistic
// mode with PolicyRetry.
func (c *Controller) AttemptTransition(ctx context.Context, id uuid.UUID, to cartitem.State, opts ...CallOption) (*cartitem.Item, error) {
	return c.transition(ctx, id, to, opts)
}

// LockForPurchase reserves the item for checkout for duration.
func (c *Controller) LockForPurchase(ctx context.Context, id uuid.UUID, duration time.Duration, opts ...CallOption) (*cartitem.Item, error) {
	if duration <= 0 {
		return nil, ErrInvalidLockDuration
	}
	return c.transition(ctx, id, cartitem.Locked, opts, WithLockDuration(duration))
}

func (c *Controller) MarkPurchased(ctx context.Context, id uuid.UUID, opts ...CallOption) (*cartitem.Item, error) {
	return c.transition(ctx, id, cartitem.Purchased, opts)
}

// Cancel cancels the item and stores reason on it.
func (c *Controller) Cancel(ctx context.Context, id uuid.UUID, reason string, opts ...CallOption) (*cartitem.Item, error) {
	return c.transition(ctx, id, cartitem.Cancelled, opts, WithMutation(func(item *cartitem.Item) error {
		item.CancellationReason = reason
		return nil
	}))
}

func (c *Controller) Expire(ctx context.Context, id uuid.UUID, opts ...CallOption) (*cartitem.Item, error) {
	return c.transition(ctx, id, cartitem.Expired, append([]CallOption{ByActor(SystemActor)}, opts...))
}

func (c *Controller) Abandon(ctx context.Context, id uuid.UUID, opts ...CallOption) (*cartitem.Item, error) {
	return c.transition(ctx, id, cartitem.Abandoned, opts)
}

// SafeQuantityUpdate sets the quantity under optimistic concurrency. The
// policy comes from Optimistic or MergeWith and defaults to PolicyRetry;
// PolicyMerge without a MergeFunc uses MergeQuantity.
func (c *Controller) SafeQuantityUpdate(ctx context.Context, id uuid.UUID, quantity int, opts ...CallOption) (*cartitem.Item, error) {
	if quantity <= 0 {
		return nil, &MutationError{Err: cartitem.ErrInvalidQuantity}
	}

	cfg := newCallConfig(modeOptimistic, opts)
	if cfg.policy == PolicyMerge && cfg.merge == nil {
		cfg.merge = MergeQuantity
	}
	item, _, err := c.execute(ctx, id, c.engine.QuantityOp(quantity), cfg)
	return item, err
}

// ManageState expires the item if its lock lapsed or the engine's expiry
// signal fires. It reports whether anything was committed.
func (c *Controller) ManageState(ctx context.Context, id uuid.UUID, opts ...CallOption) (*cartitem.Item, bool, error) {
	cfg := newCallConfig(modeOptimistic, append([]CallOption{ByActor(SystemActor)}, opts...))
	return c.execute(ctx, id, c.engine.ManageStateOp(), cfg)
}

func (c *Controller) transition(ctx context.Context, id uuid.UUID, to cartitem.State, opts []CallOption, extra ...AttemptOption) (*cartitem.Item, error) {
	defaultMode := modeOptimistic
	if to == cartitem.Locked || to == cartitem.Purchased {
		defaultMode = modeExclusive
	}
	cfg := newCallConfig(defaultMode, opts)

	attemptOpts := make([]AttemptOption, 0, 1+len(cfg.attempt)+len(extra))
	attemptOpts = append(attemptOpts, WithActor(cfg.actor))
	attemptOpts = append(attemptOpts, cfg.attempt...)
	attemptOpts = append(attemptOpts, extra...)

	item, _, err := c.execute(ctx, id, c.engine.TransitionOp(to, attemptOpts...), cfg)
	if err != nil && isRejection(err) {
		c.recordRejection(ctx, id, to, cfg.actor, err)
	}
	return item, err
}

func (c *Controller) execute(ctx context.Context, id uuid.UUID, op Operation, cfg callConfig) (*cartitem.Item, bool, error) {
	if cfg.mode == modeExclusive {
		return c.runExclusive(ctx, id, op, cfg)
	}
	return c.runOptimistic(ctx, id, op, cfg)
}

func (c *Controller) load(ctx context.Context, r Reader, id uuid.UUID) (*cartitem.Item, error) {
	item, err := r.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return item, nil
}

// apply runs op on a copy of before and checks the version contract.
func apply(ctx context.Context, before *cartitem.Item, op Operation) (*cartitem.Item, error) {
	next := before.Clone()
	if err := op(ctx, next); err != nil {
		return nil, err
	}
	if next.Version != before.Version+1 {
		return nil, ErrVersionNotAdvanced
	}
	return next, nil
}

// recordRejection audits a transition the engine refused. Nothing was
// committed, so there is no event to publish.
func (c *Controller) recordRejection(ctx context.Context, id uuid.UUID, to cartitem.State, actor string, cause error) {
	if c.audit == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	event := audit.Event{
		ItemID:  id,
		Action:  audit.ActionTransition,
		ToState: string(to),
		Actor:   actor,
		Result:  audit.ResultFailure,
		Error:   cause.Error(),
	}
	c.dispatch(ctx, id, func() {
		if err := c.audit.Record(ctx, event); err != nil {
			c.metrics.emissionFailed("audit")
			c.logger.WarnContext(ctx, "audit record for rejected transition failed",
				logger.ItemID(id),
				logger.State(string(to)),
				logger.Error(err),
			)
		}
	})
}
