package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/rules"
)

var (
	// ErrItemNotFound is returned by stores when no item has the requested ID.
	ErrItemNotFound = errors.New("lifecycle: cart item not found")

	// ErrVersionConflict is returned by Store.CompareAndSwap when the stored
	// version differs from the expected one.
	ErrVersionConflict = errors.New("lifecycle: stored version does not match expected version")

	// ErrLockNotAcquired is returned by lockers when the context ends before the lock is free.
	ErrLockNotAcquired = errors.New("lifecycle: exclusive lock not acquired")

	// ErrLeaseLost is returned by Locker.Release when the lease expired and was reclaimed.
	ErrLeaseLost = errors.New("lifecycle: lease no longer held")

	ErrNilEngine           = errors.New("lifecycle: engine cannot be nil")
	ErrNilStore            = errors.New("lifecycle: store cannot be nil")
	ErrNilLocker           = errors.New("lifecycle: locker cannot be nil")
	ErrEmptyBatch          = errors.New("lifecycle: batch has no items")
	ErrBatchRolledBack     = errors.New("lifecycle: every item in the batch failed, batch rolled back")
	ErrInvalidLockDuration = errors.New("lifecycle: lock duration must be positive")
	ErrVersionNotAdvanced  = errors.New("lifecycle: operation did not advance the item version by one")
	ErrIllegalMutation     = errors.New("lifecycle: mutation changed identity, state or version")
	ErrUnknownPolicy       = errors.New("lifecycle: unknown conflict policy")
	ErrMergeFuncRequired   = errors.New("lifecycle: merge policy requires a merge function")
)

// InvalidTransitionError means the requested edge is not in the transition table.
type InvalidTransitionError struct {
	From cartitem.State
	To   cartitem.State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from '%s' to '%s'", e.From, e.To)
}

// NotMutableError means the item is already in a final state. Attempted is
// empty for non-transition updates.
type NotMutableError struct {
	State     cartitem.State
	Attempted cartitem.State
}

func (e *NotMutableError) Error() string {
	if e.Attempted == "" {
		return fmt.Sprintf("cart item in final state '%s' cannot be modified", e.State)
	}
	return fmt.Sprintf("cart item in final state '%s' cannot transition to '%s'", e.State, e.Attempted)
}

// BusinessRuleViolationError carries the rules that rejected a transition.
type BusinessRuleViolationError struct {
	From       cartitem.State
	To         cartitem.State
	Violations rules.Violations
}

func (e *BusinessRuleViolationError) Error() string {
	return fmt.Sprintf("transition from '%s' to '%s' rejected by business rules: %s",
		e.From, e.To, strings.Join(e.Rules(), ", "))
}

// Rules returns the names of the violated rules.
func (e *BusinessRuleViolationError) Rules() []string {
	return e.Violations.Names()
}

func (e *BusinessRuleViolationError) Unwrap() error {
	return e.Violations
}

// LockTimeoutError means the exclusive lock was not acquired within Timeout.
type LockTimeoutError struct {
	ItemID  uuid.UUID
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("could not lock cart item %s within %s", e.ItemID, e.Timeout)
}

// ConcurrencyConflictError means another writer committed first. It
// deliberately carries no version numbers.
type ConcurrencyConflictError struct {
	ItemID uuid.UUID
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("cart item %s was modified concurrently, please retry", e.ItemID)
}

// MaxRetriesExceededError means the retry budget ran out. Err is the last
// failure: a *ConcurrencyConflictError or a *PersistenceError.
type MaxRetriesExceededError struct {
	ItemID   uuid.UUID
	Attempts int
	Err      error
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("cart item %s could not be updated after %d attempts, please retry", e.ItemID, e.Attempts)
}

func (e *MaxRetriesExceededError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a store or locker failure other than a version conflict.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DependencyError wraps a validator or inventory checker failure that is not
// a rule violation.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// MutationError wraps an error returned by a caller-supplied mutation.
type MutationError struct {
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation failed: %v", e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func IsInvalidTransition(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

func IsNotMutable(err error) bool {
	var e *NotMutableError
	return errors.As(err, &e)
}

func IsBusinessRuleViolation(err error) bool {
	var e *BusinessRuleViolationError
	return errors.As(err, &e)
}

func IsLockTimeout(err error) bool {
	var e *LockTimeoutError
	return errors.As(err, &e)
}

func IsConcurrencyConflict(err error) bool {
	var e *ConcurrencyConflictError
	return errors.As(err, &e)
}

func IsMaxRetriesExceeded(err error) bool {
	var e *MaxRetriesExceededError
	return errors.As(err, &e)
}

func IsPersistenceError(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}

// isRejection reports whether err is a domain rejection that retrying cannot fix.
func isRejection(err error) bool {
	return IsInvalidTransition(err) || IsNotMutable(err) || IsBusinessRuleViolation(err)
}
