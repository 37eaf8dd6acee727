package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
)

func TestReader_HistoryAndReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()
	itemID := uuid.New()
	base := time.Now()

	trail := []audit.Event{
		{Action: audit.ActionTransition, FromState: "active", ToState: "locked", Version: 1},
		{Action: audit.ActionQuantityUpdate, FromState: "locked", ToState: "locked", Version: 2},
		{Action: audit.ActionTransition, FromState: "locked", ToState: "cancelled", Result: audit.ResultFailure},
		{Action: audit.ActionTransition, FromState: "locked", ToState: "purchased", Version: 3},
	}
	for i, e := range trail {
		e.ItemID = itemID
		e.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if e.Result == "" {
			e.Result = audit.ResultSuccess
		}
		require.NoError(t, storage.Store(ctx, e))
	}

	reader := audit.NewReader(storage)
	history, err := reader.History(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, history, 3, "failed attempts are not part of the history")

	snap, err := audit.Replay(history)
	require.NoError(t, err)
	assert.Equal(t, itemID, snap.ItemID)
	assert.Equal(t, "purchased", snap.State)
	assert.Equal(t, int64(3), snap.Version)
	assert.Equal(t, 3, snap.Events)
}

func TestReplay_Errors(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	_, err := audit.Replay([]audit.Event{
		{ItemID: id, Version: 1, ToState: "locked"},
		{ItemID: id, Version: 3, ToState: "purchased"},
	})
	assert.ErrorIs(t, err, audit.ErrReplayOutOfOrder)

	_, err = audit.Replay([]audit.Event{
		{ItemID: id, Version: 1},
		{ItemID: uuid.New(), Version: 2},
	})
	assert.ErrorIs(t, err, audit.ErrReplayMixedItems)

	snap, err := audit.Replay(nil)
	require.NoError(t, err)
	assert.Zero(t, snap.Events)
}
