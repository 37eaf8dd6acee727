package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
)

// Validator applies business rules before an item is purchased or cancelled.
// A rule failure is reported as rules.Violations; any other error is treated
// as the validator being unavailable.
type Validator interface {
	Validate(ctx context.Context, item *cartitem.Item, to cartitem.State) error
}

// InventoryChecker is consulted before an item becomes purchased.
type InventoryChecker interface {
	Available(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
}

// AuditSink records committed changes. Failures are logged, never propagated.
type AuditSink interface {
	Record(ctx context.Context, event audit.Event) error
}

// Publisher announces committed changes. Failures are logged, never propagated.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Reader loads items.
type Reader interface {
	// Load returns a copy of the stored item or ErrItemNotFound.
	Load(ctx context.Context, id uuid.UUID) (*cartitem.Item, error)
}

// Writer commits items with a compare-and-swap on the version.
type Writer interface {
	// CompareAndSwap stores item only if the stored version equals
	// expectedVersion, returning ErrVersionConflict otherwise. item.Version
	// must already be expectedVersion+1.
	CompareAndSwap(ctx context.Context, expectedVersion int64, item *cartitem.Item) error
}

// Store is the persistence collaborator.
type Store interface {
	Reader
	Writer

	// InTx runs fn in a transaction: committed when fn returns nil, rolled back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is a Store transaction.
type Tx interface {
	Reader
	Writer

	// Savepoint runs fn in a nested scope; if fn fails, only its writes are undone.
	Savepoint(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Lease is an exclusive, row-scoped lock held on one item.
type Lease struct {
	ItemID     uuid.UUID
	Token      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Locker hands out exclusive leases. A lease older than the locker's stale
// threshold may be reclaimed by another caller, so a crashed holder never
// blocks an item forever.
type Locker interface {
	// Acquire blocks until the lease is granted or ctx ends, in which case it
	// returns an error wrapping ErrLockNotAcquired.
	Acquire(ctx context.Context, id uuid.UUID) (Lease, error)
	Release(ctx context.Context, lease Lease) error
}
