package lifecycle

import (
	"context"
	"time"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/rules"
)

const (
	// DefaultLockDuration is how long a locked item is reserved for checkout.
	DefaultLockDuration = 15 * time.Minute

	// SystemActor is recorded for transitions nobody asked for, such as expiry.
	SystemActor = "system"

	// DefaultActor is recorded when the caller does not name one.
	DefaultActor = "user"
)

// MutateFunc changes fields of an item that is about to be committed. It must
// not touch identity, state or version.
type MutateFunc func(item *cartitem.Item) error

// ExpirySignal reports whether an active item should be expired.
type ExpirySignal func(item *cartitem.Item, now time.Time) bool

// IdleFor expires active items that have not been updated for d.
func IdleFor(d time.Duration) ExpirySignal {
	return func(item *cartitem.Item, now time.Time) bool {
		return now.Sub(item.UpdatedAt) >= d
	}
}

// Engine applies the transition table and business rules to a single item.
// It never persists anything; the Controller decides how a change is committed.
// An Engine is safe for concurrent use as long as callers do not share items.
type Engine struct {
	validator    Validator
	inventory    InventoryChecker
	now          func() time.Time
	lockDuration time.Duration
	historyLimit int
	expirySignal ExpirySignal
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithValidator sets the business-rule validator consulted for purchase and cancellation.
func WithValidator(v Validator) EngineOption {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithInventory sets the checker consulted before every purchase.
func WithInventory(c InventoryChecker) EngineOption {
	return func(e *Engine) {
		e.inventory = c
	}
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDefaultLockDuration sets the lock window used when a caller does not pass one.
func WithDefaultLockDuration(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.lockDuration = d
		}
	}
}

func WithHistoryLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithExpirySignal enables expiry of active items in ManageState.
// Without it only lapsed locks are expired.
func WithExpirySignal(signal ExpirySignal) EngineOption {
	return func(e *Engine) {
		e.expirySignal = signal
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		now:          time.Now,
		lockDuration: DefaultLockDuration,
		historyLimit: cartitem.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AttemptOption tunes a single Attempt.
type AttemptOption func(*attemptConfig)

type attemptConfig struct {
	actor        string
	lockDuration time.Duration
	mutate       MutateFunc
}

// WithActor names who requested the transition in the history entry.
func WithActor(actor string) AttemptOption {
	return func(c *attemptConfig) {
		if actor != "" {
			c.actor = actor
		}
	}
}

// WithLockDuration sets the lock window for a transition to locked.
// A non-positive value makes the attempt fail with ErrInvalidLockDuration.
func WithLockDuration(d time.Duration) AttemptOption {
	return func(c *attemptConfig) {
		c.lockDuration = d
	}
}

// WithMutation applies fn to the item as part of the transition, for example
// to record a cancellation reason.
func WithMutation(fn MutateFunc) AttemptOption {
	return func(c *attemptConfig) {
		c.mutate = fn
	}
}

// Attempt moves item to state to. Checks run in order: mutability, the
// transition table, business rules. On any failure item is left untouched.
// On success item carries the new state, one more history entry and
// Version+1, and the appended entry is returned.
func (e *Engine) Attempt(ctx context.Context, item *cartitem.Item, to cartitem.State, opts ...AttemptOption) (cartitem.HistoryEntry, error) {
	cfg := attemptConfig{
		actor:        DefaultActor,
		lockDuration: e.lockDuration,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	from := item.State
	if !cartitem.IsMutable(from) {
		return cartitem.HistoryEntry{}, &NotMutableError{State: from, Attempted: to}
	}
	if !cartitem.IsValidTransition(from, to) {
		return cartitem.HistoryEntry{}, &InvalidTransitionError{From: from, To: to}
	}
	if err := e.checkRules(ctx, item, to); err != nil {
		return cartitem.HistoryEntry{}, err
	}
	if to == cartitem.Locked && cfg.lockDuration <= 0 {
		return cartitem.HistoryEntry{}, ErrInvalidLockDuration
	}

	now := e.now()
	next := item.Clone()
	next.State = to

	switch {
	case to == cartitem.Locked:
		deadline := now.Add(cfg.lockDuration)
		next.LockedAt = &now
		next.LockDeadline = &deadline
	case from == cartitem.Locked:
		next.LockedAt = nil
		next.LockDeadline = nil
	}

	if cfg.mutate != nil {
		if err := cfg.mutate(next); err != nil {
			return cartitem.HistoryEntry{}, &MutationError{Err: err}
		}
		if !sameIdentity(item, next) || next.State != to {
			return cartitem.HistoryEntry{}, ErrIllegalMutation
		}
	}

	entry := cartitem.HistoryEntry{From: from, To: to, Actor: cfg.actor, At: now}
	next.AppendHistory(entry, e.historyLimit)
	next.Version++
	next.UpdatedAt = now

	*item = *next
	return entry, nil
}

// Update applies a non-transition change to a mutable item, recomputes the
// total and advances the version. On failure item is left untouched.
func (e *Engine) Update(_ context.Context, item *cartitem.Item, fn MutateFunc) error {
	if !item.IsMutable() {
		return &NotMutableError{State: item.State}
	}

	next := item.Clone()
	if err := fn(next); err != nil {
		return &MutationError{Err: err}
	}
	if !sameIdentity(item, next) || next.State != item.State {
		return ErrIllegalMutation
	}
	if next.Quantity <= 0 {
		return &MutationError{Err: cartitem.ErrInvalidQuantity}
	}

	next.TotalPrice = cartitem.CalculateTotal(next.UnitPrice, next.Quantity)
	next.Version++
	next.UpdatedAt = e.now()

	*item = *next
	return nil
}

// ManageState expires the item when its lock has lapsed or, for active
// items, when the expiry signal fires. It reports whether the item changed.
func (e *Engine) ManageState(ctx context.Context, item *cartitem.Item) (bool, error) {
	if !e.NeedsExpiry(item) {
		return false, nil
	}
	if _, err := e.Attempt(ctx, item, cartitem.Expired, WithActor(SystemActor)); err != nil {
		return false, err
	}
	return true, nil
}

// NeedsExpiry reports whether ManageState would expire item right now.
func (e *Engine) NeedsExpiry(item *cartitem.Item) bool {
	now := e.now()
	switch {
	case item.LockExpired(now):
		return true
	case item.IsActive() && e.expirySignal != nil:
		return e.expirySignal(item, now)
	default:
		return false
	}
}

// checkRules runs the business rules attached to purchase and cancellation.
// Inventory is consulted for every transition into purchased.
func (e *Engine) checkRules(ctx context.Context, item *cartitem.Item, to cartitem.State) error {
	if to != cartitem.Purchased && to != cartitem.Cancelled {
		return nil
	}

	if e.validator != nil {
		if err := e.validator.Validate(ctx, item, to); err != nil {
			if v := rules.Extract(err); v != nil {
				return &BusinessRuleViolationError{From: item.State, To: to, Violations: v}
			}
			return &DependencyError{Dependency: "validator", Err: err}
		}
	}

	if to != cartitem.Purchased {
		return nil
	}
	if !item.IsPurchasable() {
		return &BusinessRuleViolationError{From: item.State, To: to, Violations: rules.Violations{{
			Rule:    rules.RulePurchasableState,
			Message: "item in state '" + string(item.State) + "' cannot be purchased",
		}}}
	}
	if item.LockExpired(e.now()) {
		return &BusinessRuleViolationError{From: item.State, To: to, Violations: rules.Violations{{
			Rule:    rules.RuleLockNotExpired,
			Message: "purchase lock has expired",
		}}}
	}
	if e.inventory == nil {
		return nil
	}

	ok, err := e.inventory.Available(ctx, item.ProductID, item.Quantity)
	if err != nil {
		return &DependencyError{Dependency: "inventory", Err: err}
	}
	if !ok {
		return &BusinessRuleViolationError{From: item.State, To: to, Violations: rules.Violations{{
			Rule:    rules.RuleInventoryAvailable,
			Message: "not enough stock for the requested quantity",
		}}}
	}
	return nil
}

func sameIdentity(a, b *cartitem.Item) bool {
	return a.ID == b.ID && a.UserID == b.UserID && a.ProductID == b.ProductID && a.Version == b.Version
}
