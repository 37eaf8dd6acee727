package audit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
)

type countingBackend struct {
	*audit.MemoryStorage
	mu      sync.Mutex
	batches int
	err     error
}

func (b *countingBackend) StoreBatch(ctx context.Context, events []audit.Event) error {
	b.mu.Lock()
	b.batches++
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.MemoryStorage.StoreBatch(ctx, events)
}

func TestAsyncWriter_ConcurrentStore(t *testing.T) {
	t.Parallel()

	backend := &countingBackend{MemoryStorage: audit.NewMemoryStorage()}
	writer, closeFn := audit.NewAsyncWriter(backend, audit.AsyncOptions{
		BatchSize:    10,
		BatchTimeout: 20 * time.Millisecond,
	})

	recorder := audit.NewRecorder(writer)

	const workers, perWorker = 5, 4
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				err := recorder.Record(context.Background(), audit.Event{ItemID: uuid.New(), Action: audit.ActionTransition})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, closeFn(ctx))

	assert.Equal(t, workers*perWorker, backend.Len())
	backend.mu.Lock()
	assert.Less(t, backend.batches, workers*perWorker, "events are written in batches")
	backend.mu.Unlock()
}

func TestAsyncWriter_PropagatesBatchError(t *testing.T) {
	t.Parallel()

	backend := &countingBackend{MemoryStorage: audit.NewMemoryStorage(), err: errors.New("db down")}
	writer, closeFn := audit.NewAsyncWriter(backend, audit.AsyncOptions{BatchTimeout: 10 * time.Millisecond})
	defer func() { _ = closeFn(context.Background()) }()

	err := writer.Store(context.Background(), audit.Event{ItemID: uuid.New(), Action: "x"})
	assert.EqualError(t, err, "db down")
}

func TestAsyncWriter_StoreAfterClose(t *testing.T) {
	t.Parallel()

	writer, closeFn := audit.NewAsyncWriter(audit.NewMemoryStorage(), audit.AsyncOptions{})
	require.NoError(t, closeFn(context.Background()))
	require.NoError(t, closeFn(context.Background()), "close is idempotent")

	err := writer.Store(context.Background(), audit.Event{ItemID: uuid.New(), Action: "x"})
	assert.ErrorIs(t, err, audit.ErrStorageNotAvailable)
}

func TestAsyncWriter_StoreRacingClose(t *testing.T) {
	t.Parallel()

	for range 20 {
		backend := audit.NewMemoryStorage()
		writer, closeFn := audit.NewAsyncWriter(backend, audit.AsyncOptions{
			BatchSize:    4,
			BatchTimeout: 5 * time.Millisecond,
		})

		const writers = 8
		var (
			wg     sync.WaitGroup
			stored atomic.Int32
		)
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				err := writer.Store(ctx, audit.Event{ItemID: uuid.New(), Action: audit.ActionTransition})
				if err == nil {
					stored.Add(1)
					return
				}
				assert.ErrorIs(t, err, audit.ErrStorageNotAvailable)
			}()
		}

		require.NoError(t, closeFn(context.Background()))
		wg.Wait()

		assert.Equal(t, int(stored.Load()), backend.Len(), "every accepted event is written")
	}
}
