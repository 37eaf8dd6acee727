package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStorage) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	args := m.Called(ctx, criteria)
	events, _ := args.Get(0).([]audit.Event)
	return events, args.Error(1)
}

type actorKey struct{}

func TestRecorder_Record(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	itemID := uuid.New()

	t.Run("fills defaults and context fields", func(t *testing.T) {
		t.Parallel()

		storage := new(MockStorage)
		storage.On("Store", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
			return e.ID != "" &&
				e.CreatedAt.Equal(fixed) &&
				e.Result == audit.ResultSuccess &&
				e.Actor == "checkout-worker" &&
				e.ItemID == itemID
		})).Return(nil).Once()

		recorder := audit.NewRecorder(storage,
			audit.WithClock(func() time.Time { return fixed }),
			audit.WithActorExtractor(func(ctx context.Context) (string, bool) {
				v, ok := ctx.Value(actorKey{}).(string)
				return v, ok
			}),
		)

		ctx := context.WithValue(context.Background(), actorKey{}, "checkout-worker")
		err := recorder.Record(ctx, audit.Event{ItemID: itemID, Action: audit.ActionTransition})
		require.NoError(t, err)
		storage.AssertExpectations(t)
	})

	t.Run("explicit actor wins over context", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		recorder := audit.NewRecorder(storage, audit.WithActorExtractor(func(context.Context) (string, bool) {
			return "from-context", true
		}))

		require.NoError(t, recorder.Record(context.Background(), audit.Event{
			ItemID: itemID, Action: audit.ActionTransition, Actor: "sweeper",
		}))

		events, err := storage.Query(context.Background(), audit.Criteria{ItemID: itemID})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "sweeper", events[0].Actor)
	})

	t.Run("rejects invalid events", func(t *testing.T) {
		t.Parallel()

		storage := new(MockStorage)
		recorder := audit.NewRecorder(storage)

		err := recorder.Record(context.Background(), audit.Event{ItemID: itemID})
		assert.ErrorIs(t, err, audit.ErrEventValidation)

		err = recorder.Record(context.Background(), audit.Event{Action: audit.ActionTransition})
		assert.ErrorIs(t, err, audit.ErrEventValidation)

		storage.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		t.Parallel()

		storage := new(MockStorage)
		storage.On("Store", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		err := audit.NewRecorder(storage).Record(context.Background(), audit.Event{ItemID: itemID, Action: "x"})
		assert.EqualError(t, err, "disk full")
	})

	t.Run("panics on nil storage", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { audit.NewRecorder(nil) })
	})
}

func TestMemoryStorage_Query(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()
	a, b := uuid.New(), uuid.New()
	base := time.Now()

	for i := range 4 {
		require.NoError(t, storage.Store(ctx, audit.Event{
			ItemID:    a,
			Action:    audit.ActionTransition,
			Version:   int64(i + 1),
			CreatedAt: base.Add(time.Duration(3-i) * -time.Second),
		}))
	}
	require.NoError(t, storage.Store(ctx, audit.Event{ItemID: b, Action: audit.ActionQuantityUpdate, CreatedAt: base}))

	events, err := storage.Query(ctx, audit.Criteria{ItemID: a})
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, int64(1), events[0].Version)

	events, err = storage.Query(ctx, audit.Criteria{ItemID: a, Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Version)

	events, err = storage.Query(ctx, audit.Criteria{Action: audit.ActionQuantityUpdate})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, b, events[0].ItemID)

	events, err = storage.Query(ctx, audit.Criteria{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, events)
}
