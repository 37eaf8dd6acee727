package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartstore"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

// recordingSink keeps every audit event it is given.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *recordingSink) Record(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

// gatedSink holds Record until gate is closed. With firstOnly set only the
// first call waits.
type gatedSink struct {
	recordingSink
	firstOnly bool
	calls     atomic.Int32
	entered   chan struct{}
	enterOnce sync.Once
	gate      chan struct{}
}

func newGatedSink(firstOnly bool) *gatedSink {
	return &gatedSink{
		firstOnly: firstOnly,
		entered:   make(chan struct{}),
		gate:      make(chan struct{}),
	}
}

func (s *gatedSink) Record(ctx context.Context, e audit.Event) error {
	n := s.calls.Add(1)
	s.enterOnce.Do(func() { close(s.entered) })
	if !s.firstOnly || n == 1 {
		<-s.gate
	}
	return s.recordingSink.Record(ctx, e)
}

type published struct {
	topic   string
	payload any
}

// recordingPublisher keeps every published topic and payload.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		topics = append(topics, m.topic)
	}
	return topics
}

// racingStore lets another writer bump the stored item right before each of
// the next `races` compare-and-swaps, so those writes lose deterministically.
type racingStore struct {
	*cartstore.MemoryStore
	races atomic.Int32
	swaps atomic.Int32
}

func newRacingStore(races int) *racingStore {
	s := &racingStore{MemoryStore: cartstore.NewMemoryStore()}
	s.races.Store(int32(races))
	return s
}

func (s *racingStore) CompareAndSwap(ctx context.Context, expected int64, item *cartitem.Item) error {
	s.swaps.Add(1)
	if s.races.Add(-1) >= 0 {
		current, err := s.MemoryStore.Load(ctx, item.ID)
		if err != nil {
			return err
		}
		bumped := current.Clone()
		if err := bumped.SetQuantity(current.Quantity + 1); err != nil {
			return err
		}
		bumped.Version++
		if err := s.MemoryStore.CompareAndSwap(ctx, current.Version, bumped); err != nil {
			return err
		}
	}
	return s.MemoryStore.CompareAndSwap(ctx, expected, item)
}

var errCommit = errors.New("commit failed")

// failingCommitStore runs batches normally and then refuses to commit them.
type failingCommitStore struct {
	*cartstore.MemoryStore
}

func (s failingCommitStore) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return s.MemoryStore.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return errCommit
	})
}

var errLateWrite = errors.New("write rejected after staging")

// lateFailStore stages the write for failOn inside its savepoint and then
// reports an error, so only the savepoint rollback can undo it.
type lateFailStore struct {
	*cartstore.MemoryStore
	failOn uuid.UUID
}

func (s lateFailStore) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return s.MemoryStore.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		return fn(ctx, lateFailTx{Tx: tx, failOn: s.failOn})
	})
}

type lateFailTx struct {
	lifecycle.Tx
	failOn uuid.UUID
}

func (t lateFailTx) CompareAndSwap(ctx context.Context, expected int64, item *cartitem.Item) error {
	if err := t.Tx.CompareAndSwap(ctx, expected, item); err != nil {
		return err
	}
	if item.ID == t.failOn {
		return errLateWrite
	}
	return nil
}

func (t lateFailTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return t.Tx.Savepoint(ctx, func(ctx context.Context, sp lifecycle.Tx) error {
		return fn(ctx, lateFailTx{Tx: sp, failOn: t.failOn})
	})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type inserter interface {
	Insert(ctx context.Context, item *cartitem.Item) error
}

func seedItem(t *testing.T, s inserter, quantity int, unitPrice int64, now time.Time) *cartitem.Item {
	t.Helper()
	item, err := cartitem.New(uuid.New(), uuid.New(), quantity, unitPrice, now)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), item))
	return item
}

func newController(t *testing.T, store lifecycle.Store, opts ...lifecycle.Option) *lifecycle.Controller {
	t.Helper()
	c, err := lifecycle.NewController(lifecycle.NewEngine(), store, cartstore.NewMemoryLocker(), opts...)
	require.NoError(t, err)
	return c
}
