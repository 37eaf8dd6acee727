package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartstore"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/events"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

func TestController_BatchUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("failed item does not undo the others", func(t *testing.T) {
		t.Parallel()
		store := cartstore.NewMemoryStore()
		pub := &recordingPublisher{}
		c := newController(t, store, lifecycle.WithPublisher(pub))

		a := seedItem(t, store, 1, 100, time.Now())
		b := seedItem(t, store, 1, 100, time.Now())
		cc := seedItem(t, store, 1, 100, time.Now())
		_, err := c.Cancel(ctx, b.ID, "")
		require.NoError(t, err)

		result, err := c.BatchUpdate(ctx, []uuid.UUID{a.ID, b.ID, cc.ID}, c.Engine().TransitionOp(cartitem.Abandoned))
		require.NoError(t, err)

		require.Len(t, result.Succeeded, 2)
		assert.Equal(t, a.ID, result.Succeeded[0].ID)
		assert.Equal(t, cc.ID, result.Succeeded[1].ID)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, b.ID, result.Failed[0].ItemID)
		assert.True(t, lifecycle.IsNotMutable(result.Failed[0].Err))

		for _, id := range []uuid.UUID{a.ID, cc.ID} {
			stored, err := c.Get(ctx, id)
			require.NoError(t, err)
			assert.True(t, stored.IsAbandoned())
			assert.Equal(t, int64(1), stored.Version)
		}
		stored, err := c.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsCancelled())

		assert.Len(t, pub.Topics(), 3, "one cancel before the batch, two abandons after commit")
	})

	t.Run("item changed then refused keeps its stored copy", func(t *testing.T) {
		t.Parallel()
		store := cartstore.NewMemoryStore()
		pub := &recordingPublisher{}
		c := newController(t, store, lifecycle.WithPublisher(pub))

		a := seedItem(t, store, 1, 100, time.Now())
		b := seedItem(t, store, 1, 100, time.Now())
		cc := seedItem(t, store, 1, 100, time.Now())
		original, err := c.Get(ctx, b.ID)
		require.NoError(t, err)

		errRefused := errors.New("supplier refused the quantity")
		setFive := c.Engine().QuantityOp(5)
		op := func(ctx context.Context, item *cartitem.Item) error {
			if err := setFive(ctx, item); err != nil {
				return err
			}
			if item.ID == b.ID {
				return errRefused
			}
			return nil
		}

		result, err := c.BatchUpdate(ctx, []uuid.UUID{a.ID, b.ID, cc.ID}, op)
		require.NoError(t, err)
		require.Len(t, result.Succeeded, 2)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, b.ID, result.Failed[0].ItemID)
		assert.ErrorIs(t, result.Failed[0].Err, errRefused)

		stored, err := c.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, original, stored)

		for _, id := range []uuid.UUID{a.ID, cc.ID} {
			stored, err := c.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 5, stored.Quantity)
			assert.Equal(t, int64(1), stored.Version)
		}
		assert.Equal(t, []string{events.TopicQuantityUpdated, events.TopicQuantityUpdated}, pub.Topics())
	})

	t.Run("staged write of a failed item is rolled back", func(t *testing.T) {
		t.Parallel()
		mem := cartstore.NewMemoryStore()
		a := seedItem(t, mem, 1, 100, time.Now())
		b := seedItem(t, mem, 1, 100, time.Now())
		cc := seedItem(t, mem, 1, 100, time.Now())
		original, err := mem.Load(ctx, b.ID)
		require.NoError(t, err)

		c := newController(t, lateFailStore{MemoryStore: mem, failOn: b.ID})
		result, err := c.BatchUpdate(ctx, []uuid.UUID{a.ID, b.ID, cc.ID}, c.Engine().QuantityOp(7))
		require.NoError(t, err)
		require.Len(t, result.Succeeded, 2)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, b.ID, result.Failed[0].ItemID)
		assert.ErrorIs(t, result.Failed[0].Err, errLateWrite)
		assert.True(t, lifecycle.IsPersistenceError(result.Failed[0].Err))

		stored, err := mem.Load(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, original, stored)

		for _, id := range []uuid.UUID{a.ID, cc.ID} {
			stored, err := mem.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 7, stored.Quantity)
		}
	})

	t.Run("all failed rolls back", func(t *testing.T) {
		t.Parallel()
		store := cartstore.NewMemoryStore()
		c := newController(t, store)

		a := seedItem(t, store, 1, 100, time.Now())
		missing := uuid.New()

		result, err := c.BatchUpdate(ctx, []uuid.UUID{a.ID, missing}, c.Engine().QuantityOp(0))
		assert.ErrorIs(t, err, lifecycle.ErrBatchRolledBack)
		assert.Empty(t, result.Succeeded)
		require.Len(t, result.Failed, 2)
		assert.ErrorIs(t, result.Failed[0].Err, cartitem.ErrInvalidQuantity)
		assert.ErrorIs(t, result.Failed[1].Err, lifecycle.ErrItemNotFound)

		stored, err := c.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.Version)
	})

	t.Run("commit failure fails every item", func(t *testing.T) {
		t.Parallel()
		mem := cartstore.NewMemoryStore()
		c := newController(t, failingCommitStore{MemoryStore: mem})

		a := seedItem(t, mem, 1, 100, time.Now())
		b := seedItem(t, mem, 1, 100, time.Now())

		result, err := c.BatchUpdate(ctx, []uuid.UUID{a.ID, b.ID}, c.Engine().QuantityOp(4))
		var perr *lifecycle.PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "batch_commit", perr.Op)
		assert.ErrorIs(t, err, errCommit)

		assert.Empty(t, result.Succeeded)
		require.Len(t, result.Failed, 2)
		for _, f := range result.Failed {
			assert.True(t, lifecycle.IsPersistenceError(f.Err))
		}

		stored, err := c.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Quantity)
	})

	t.Run("unchanged items count as succeeded", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		store := cartstore.NewMemoryStore()
		c, err := lifecycle.NewController(lifecycle.NewEngine(lifecycle.WithEngineClock(clock.Now)), store, cartstore.NewMemoryLocker())
		require.NoError(t, err)

		fresh := seedItem(t, store, 1, 100, clock.Now())
		stale := seedItem(t, store, 1, 100, clock.Now())
		_, err = c.LockForPurchase(ctx, stale.ID, time.Minute)
		require.NoError(t, err)
		clock.Advance(time.Hour)

		result, err := c.BatchUpdate(ctx, []uuid.UUID{fresh.ID, stale.ID}, c.Engine().ManageStateOp())
		require.NoError(t, err)
		require.Len(t, result.Succeeded, 2)
		assert.Empty(t, result.Failed)
		assert.True(t, result.Succeeded[0].IsActive())
		assert.True(t, result.Succeeded[1].IsExpired())
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()
		c := newController(t, cartstore.NewMemoryStore())
		_, err := c.BatchUpdate(ctx, nil, c.Engine().QuantityOp(1))
		assert.ErrorIs(t, err, lifecycle.ErrEmptyBatch)
	})
}
