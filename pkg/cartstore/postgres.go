package cartstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/pg"
)

const itemColumns = `id, user_id, product_id, state, version, locked_at, lock_deadline,
	quantity, unit_price, total_price, cancellation_reason, history, created_at, updated_at`

const (
	selectItemSQL = `SELECT ` + itemColumns + ` FROM cart_items WHERE id = $1`

	insertItemSQL = `INSERT INTO cart_items (` + itemColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	casItemSQL = `UPDATE cart_items SET
		state = $3, version = $4, locked_at = $5, lock_deadline = $6,
		quantity = $7, unit_price = $8, total_price = $9,
		cancellation_reason = $10, history = $11, updated_at = $12
	WHERE id = $1 AND version = $2`

	itemExistsSQL = `SELECT EXISTS (SELECT 1 FROM cart_items WHERE id = $1)`

	listExpirableSQL = `SELECT id FROM cart_items
	WHERE state = 'locked' AND lock_deadline < $1
	ORDER BY lock_deadline
	LIMIT $2`
)

// dbtx is the part of pgxpool.Pool and pgx.Tx the store needs.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps items in the cart_items table (see migrations/).
// Compare-and-swap is a single UPDATE guarded by the version column, and
// savepoints map onto pgx nested transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, item *cartitem.Item) error {
	if item == nil {
		return ErrNilItem
	}
	_, err := s.pool.Exec(ctx, insertItemSQL,
		item.ID, item.UserID, item.ProductID, string(item.State), item.Version,
		item.LockedAt, item.LockDeadline, item.Quantity, item.UnitPrice, item.TotalPrice,
		item.CancellationReason, historyParam(item.History), item.CreatedAt, item.UpdatedAt,
	)
	switch {
	case pg.IsDuplicateKeyError(err):
		return ErrItemExists
	case pg.IsCheckViolationError(err):
		return errors.Join(ErrConstraintViolation, err)
	}
	return err
}

func (s *PostgresStore) Load(ctx context.Context, id uuid.UUID) (*cartitem.Item, error) {
	return loadItem(ctx, s.pool, id)
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, expectedVersion int64, item *cartitem.Item) error {
	return compareAndSwap(ctx, s.pool, expectedVersion, item)
}

// ListExpirable returns locked items whose deadline passed before now,
// oldest deadline first.
func (s *PostgresStore) ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, listExpirableSQL, now, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &postgresTx{tx: tx})
	})
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Load(ctx context.Context, id uuid.UUID) (*cartitem.Item, error) {
	return loadItem(ctx, t.tx, id)
}

func (t *postgresTx) CompareAndSwap(ctx context.Context, expectedVersion int64, item *cartitem.Item) error {
	return compareAndSwap(ctx, t.tx, expectedVersion, item)
}

// Savepoint runs fn in a pgx nested transaction, which pgx implements as a
// SAVEPOINT / ROLLBACK TO SAVEPOINT pair.
func (t *postgresTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return pgx.BeginFunc(ctx, t.tx, func(nested pgx.Tx) error {
		return fn(ctx, &postgresTx{tx: nested})
	})
}

func loadItem(ctx context.Context, db dbtx, id uuid.UUID) (*cartitem.Item, error) {
	var (
		item  cartitem.Item
		state string
	)
	err := db.QueryRow(ctx, selectItemSQL, id).Scan(
		&item.ID, &item.UserID, &item.ProductID, &state, &item.Version,
		&item.LockedAt, &item.LockDeadline, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
		&item.CancellationReason, &item.History, &item.CreatedAt, &item.UpdatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, lifecycle.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	item.State, err = cartitem.ParseState(state)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func compareAndSwap(ctx context.Context, db dbtx, expectedVersion int64, item *cartitem.Item) error {
	if item == nil {
		return ErrNilItem
	}

	tag, err := db.Exec(ctx, casItemSQL,
		item.ID, expectedVersion, string(item.State), item.Version,
		item.LockedAt, item.LockDeadline, item.Quantity, item.UnitPrice, item.TotalPrice,
		item.CancellationReason, historyParam(item.History), item.UpdatedAt,
	)
	switch {
	case pg.IsSerializationError(err):
		// Another transaction touched the row first; same outcome as a version miss.
		return lifecycle.ErrVersionConflict
	case pg.IsCheckViolationError(err):
		return errors.Join(ErrConstraintViolation, err)
	case err != nil:
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx, itemExistsSQL, item.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return lifecycle.ErrItemNotFound
	}
	return lifecycle.ErrVersionConflict
}

// historyParam keeps the jsonb column an array even for items without history.
func historyParam(h []cartitem.HistoryEntry) []cartitem.HistoryEntry {
	if h == nil {
		return []cartitem.HistoryEntry{}
	}
	return h
}
