package cartstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

// DefaultStaleAfter is how old a lease must be before another caller may
// take it over.
const DefaultStaleAfter = 10 * time.Minute

// LockerOption configures the lockers in this package.
type LockerOption func(*lockerConfig)

type lockerConfig struct {
	staleAfter   time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

func defaultLockerConfig() lockerConfig {
	return lockerConfig{
		staleAfter:   DefaultStaleAfter,
		pollInterval: 25 * time.Millisecond,
		now:          time.Now,
	}
}

// WithStaleAfter sets the age at which a held lease may be reclaimed.
func WithStaleAfter(d time.Duration) LockerOption {
	return func(c *lockerConfig) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithPollInterval sets how often a blocked Acquire re-checks the lock.
func WithPollInterval(d time.Duration) LockerOption {
	return func(c *lockerConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithLockerClock(now func() time.Time) LockerOption {
	return func(c *lockerConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// MemoryLocker grants in-process leases, one holder per item.
type MemoryLocker struct {
	cfg lockerConfig

	mu       sync.Mutex
	leases   map[uuid.UUID]lifecycle.Lease
	released map[uuid.UUID]chan struct{}
}

func NewMemoryLocker(opts ...LockerOption) *MemoryLocker {
	cfg := defaultLockerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryLocker{
		cfg:      cfg,
		leases:   make(map[uuid.UUID]lifecycle.Lease),
		released: make(map[uuid.UUID]chan struct{}),
	}
}

// Acquire waits until the item is free or its lease is stale.
func (l *MemoryLocker) Acquire(ctx context.Context, id uuid.UUID) (lifecycle.Lease, error) {
	for {
		lease, wait, ok := l.tryAcquire(id)
		if ok {
			return lease, nil
		}

		timer := time.NewTimer(l.cfg.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lifecycle.Lease{}, fmt.Errorf("%w: %w", lifecycle.ErrLockNotAcquired, ctx.Err())
		case <-wait:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (l *MemoryLocker) tryAcquire(id uuid.UUID) (lifecycle.Lease, <-chan struct{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.cfg.now()
	if held, ok := l.leases[id]; ok && now.Sub(held.AcquiredAt) < l.cfg.staleAfter {
		ch, exists := l.released[id]
		if !exists {
			ch = make(chan struct{})
			l.released[id] = ch
		}
		return lifecycle.Lease{}, ch, false
	}

	lease := lifecycle.Lease{
		ItemID:     id,
		Token:      uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(l.cfg.staleAfter),
	}
	l.leases[id] = lease
	return lease, nil, true
}

// Release frees the lease. It returns lifecycle.ErrLeaseLost when the lease
// was reclaimed by someone else in the meantime.
func (l *MemoryLocker) Release(_ context.Context, lease lifecycle.Lease) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	held, ok := l.leases[lease.ItemID]
	if !ok || held.Token != lease.Token {
		return lifecycle.ErrLeaseLost
	}

	delete(l.leases, lease.ItemID)
	if ch, ok := l.released[lease.ItemID]; ok {
		close(ch)
		delete(l.released, lease.ItemID)
	}
	return nil
}

// Held reports whether a lease on id is currently granted.
func (l *MemoryLocker) Held(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.leases[id]
	return ok
}
