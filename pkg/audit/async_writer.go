package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions configures batching and buffering of an AsyncWriter.
type AsyncOptions struct {
	BufferSize     int           // Max events queued before Store falls back to a direct write
	BatchSize      int           // Events per flush
	BatchTimeout   time.Duration // Max time a partial batch waits
	StorageTimeout time.Duration // Per-flush storage timeout
}

// batchStorage is a Storage that can also write many events at once.
// StoreBatch must be atomic: either all events are stored or none.
type batchStorage interface {
	StoreBatch(ctx context.Context, events []Event) error
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
}

// AsyncWriter collects events from concurrent callers and writes them in batches.
// It satisfies Storage, so it can sit between a Recorder and a batch-capable backend.
type AsyncWriter struct {
	backend   batchStorage
	eventChan chan pendingEvent
	done      chan struct{}
	mu        sync.RWMutex // guards closed; Close holds it while closing done
	closed    bool
	wg        sync.WaitGroup
	options   AsyncOptions
}

type pendingEvent struct {
	event  Event
	result chan error
}

// NewAsyncWriter starts the background flusher and returns the writer together
// with its shutdown function.
func NewAsyncWriter(backend batchStorage, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if backend == nil {
		panic("audit: batch storage cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	aw := &AsyncWriter{
		backend:   backend,
		eventChan: make(chan pendingEvent, opts.BufferSize),
		done:      make(chan struct{}),
		options:   opts,
	}

	aw.wg.Add(1)
	go aw.worker()

	return aw, aw.Close
}

// Store queues the event and waits for the batch containing it to be written.
// Once Close has started it returns ErrStorageNotAvailable.
func (aw *AsyncWriter) Store(ctx context.Context, event Event) error {
	result := make(chan error, 1)

	queued, err := aw.enqueue(ctx, pendingEvent{event: event, result: result})
	if err != nil {
		return err
	}
	if !queued {
		// Buffer full: write directly rather than drop the event.
		return aw.backend.StoreBatch(ctx, []Event{event})
	}

	// The worker drains every queued event before it exits, so result is
	// always answered.
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (aw *AsyncWriter) enqueue(ctx context.Context, p pendingEvent) (bool, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()

	if aw.closed {
		return false, ErrStorageNotAvailable
	}
	select {
	case aw.eventChan <- p:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		return false, nil
	}
}

// Query reads through to the backend.
func (aw *AsyncWriter) Query(ctx context.Context, criteria Criteria) ([]Event, error) {
	return aw.backend.Query(ctx, criteria)
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Event, 0, aw.options.BatchSize)
	waiters := make([]chan error, 0, aw.options.BatchSize)

	ticker := time.NewTicker(aw.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// Detached from callers' contexts so one caller's timeout does not fail the batch.
		ctx, cancel := context.WithTimeout(context.Background(), aw.options.StorageTimeout)
		defer cancel()

		err := aw.backend.StoreBatch(ctx, batch)
		for _, w := range waiters {
			w <- err // buffered, never blocks
		}

		clear(batch)
		batch = batch[:0]
		waiters = waiters[:0]
	}

	add := func(p pendingEvent) {
		batch = append(batch, p.event)
		waiters = append(waiters, p.result)
		if len(batch) >= aw.options.BatchSize {
			flush()
		}
	}

	for {
		select {
		case p := <-aw.eventChan:
			add(p)
		case <-ticker.C:
			flush()
		case <-aw.done:
			for {
				select {
				case p := <-aw.eventChan:
					add(p)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes what is queued. The context bounds
// how long Close waits for the final flush.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if !aw.closed {
		aw.closed = true
		close(aw.done)
	}
	aw.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
