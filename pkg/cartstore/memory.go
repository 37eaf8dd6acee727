package cartstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

// MemoryStore keeps items in a map. It implements lifecycle.Store for tests
// and local runs. Transactions are serialised; a transaction commits only if
// none of the items it wrote changed underneath it.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*cartitem.Item

	txMu sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]*cartitem.Item)}
}

// Insert adds a new item.
func (s *MemoryStore) Insert(_ context.Context, item *cartitem.Item) error {
	if item == nil {
		return ErrNilItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return ErrItemExists
	}
	s.items[item.ID] = item.Clone()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (*cartitem.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, lifecycle.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, expectedVersion int64, item *cartitem.Item) error {
	if item == nil {
		return ErrNilItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[item.ID]
	if !ok {
		return lifecycle.ErrItemNotFound
	}
	if current.Version != expectedVersion {
		return lifecycle.ErrVersionConflict
	}
	s.items[item.ID] = item.Clone()
	return nil
}

// ListExpirable returns locked items whose deadline passed before now,
// oldest deadline first.
func (s *MemoryStore) ListExpirable(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	expired := make([]*cartitem.Item, 0)
	for _, item := range s.items {
		if item.LockExpired(now) {
			expired = append(expired, item)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(expired, func(a, b *cartitem.Item) int {
		return a.LockDeadline.Compare(*b.LockDeadline)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, item := range expired {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// InTx runs fn against a staging area that is applied atomically when fn
// returns nil.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{store: s, staged: make(map[uuid.UUID]stagedItem)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx.staged)
}

func (s *MemoryStore) commit(staged map[uuid.UUID]stagedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range staged {
		current, ok := s.items[id]
		if !ok {
			return lifecycle.ErrItemNotFound
		}
		if current.Version != st.baseVersion {
			return lifecycle.ErrVersionConflict
		}
	}
	for id, st := range staged {
		s.items[id] = st.item
	}
	return nil
}

type stagedItem struct {
	item        *cartitem.Item
	baseVersion int64
}

type memoryTx struct {
	store  *MemoryStore
	staged map[uuid.UUID]stagedItem
}

func (tx *memoryTx) Load(ctx context.Context, id uuid.UUID) (*cartitem.Item, error) {
	if st, ok := tx.staged[id]; ok {
		return st.item.Clone(), nil
	}
	return tx.store.Load(ctx, id)
}

func (tx *memoryTx) CompareAndSwap(ctx context.Context, expectedVersion int64, item *cartitem.Item) error {
	if item == nil {
		return ErrNilItem
	}

	st, ok := tx.staged[item.ID]
	if !ok {
		current, err := tx.store.Load(ctx, item.ID)
		if err != nil {
			return err
		}
		st = stagedItem{item: current, baseVersion: current.Version}
	}
	if st.item.Version != expectedVersion {
		return lifecycle.ErrVersionConflict
	}

	tx.staged[item.ID] = stagedItem{item: item.Clone(), baseVersion: st.baseVersion}
	return nil
}

func (tx *memoryTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	snapshot := maps.Clone(tx.staged)
	if err := fn(ctx, tx); err != nil {
		tx.staged = snapshot
		return err
	}
	return nil
}
