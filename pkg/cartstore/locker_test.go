package cartstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartstore"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := cartstore.NewMemoryLocker()
	id := uuid.New()

	lease, err := locker.Acquire(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, lease.ItemID)
	assert.NotEmpty(t, lease.Token)
	assert.Equal(t, lease.AcquiredAt.Add(cartstore.DefaultStaleAfter), lease.ExpiresAt)
	assert.True(t, locker.Held(id))

	other, err := locker.Acquire(ctx, uuid.New())
	require.NoError(t, err, "leases are per item")
	require.NoError(t, locker.Release(ctx, other))

	require.NoError(t, locker.Release(ctx, lease))
	assert.False(t, locker.Held(id))
	assert.ErrorIs(t, locker.Release(ctx, lease), lifecycle.ErrLeaseLost)
}

func TestMemoryLocker_BlocksUntilReleased(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := cartstore.NewMemoryLocker(cartstore.WithPollInterval(time.Second))
	id := uuid.New()

	first, err := locker.Acquire(ctx, id)
	require.NoError(t, err)

	acquired := make(chan lifecycle.Lease, 1)
	go func() {
		lease, err := locker.Acquire(ctx, id)
		if err == nil {
			acquired <- lease
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second caller acquired a held lease")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, locker.Release(ctx, first))

	select {
	case lease := <-acquired:
		assert.NotEqual(t, first.Token, lease.Token)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("waiter was not woken by release")
	}
}

func TestMemoryLocker_Timeout(t *testing.T) {
	t.Parallel()

	locker := cartstore.NewMemoryLocker(cartstore.WithPollInterval(5 * time.Millisecond))
	id := uuid.New()

	_, err := locker.Acquire(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, id)
	assert.ErrorIs(t, err, lifecycle.ErrLockNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryLocker_ReclaimsStaleLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &manualClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	locker := cartstore.NewMemoryLocker(
		cartstore.WithStaleAfter(time.Minute),
		cartstore.WithPollInterval(time.Millisecond),
		cartstore.WithLockerClock(clock.Now),
	)
	id := uuid.New()

	crashed, err := locker.Acquire(ctx, id)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	reclaimed, err := locker.Acquire(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, crashed.Token, reclaimed.Token)

	assert.ErrorIs(t, locker.Release(ctx, crashed), lifecycle.ErrLeaseLost, "old holder lost the lease")
	assert.NoError(t, locker.Release(ctx, reclaimed))
}
