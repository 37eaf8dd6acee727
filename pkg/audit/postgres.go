package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEventSQL = `
INSERT INTO cart_item_audit_events
	(id, item_id, user_id, action, from_state, to_state, actor, version, result, error, request_id, metadata, created_at)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectEventsSQL = `
SELECT id, item_id, user_id, action, from_state, to_state, actor, version, result, error, request_id, metadata, created_at
FROM cart_item_audit_events`

// PostgresStorage stores events in the cart_item_audit_events table
// (see migrations/).
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	if pool == nil {
		panic("audit: postgres pool cannot be nil")
	}
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Store(ctx context.Context, event Event) error {
	if _, err := s.pool.Exec(ctx, insertEventSQL, eventArgs(event)...); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

// StoreBatch writes all events in one transaction.
func (s *PostgresStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range events {
			batch.Queue(insertEventSQL, eventArgs(e)...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

func (s *PostgresStorage) Query(ctx context.Context, criteria Criteria) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if criteria.ItemID != uuid.Nil {
		where = append(where, "item_id = "+arg(criteria.ItemID))
	}
	if criteria.Action != "" {
		where = append(where, "action = "+arg(criteria.Action))
	}
	if !criteria.Since.IsZero() {
		where = append(where, "created_at >= "+arg(criteria.Since))
	}
	if !criteria.Until.IsZero() {
		where = append(where, "created_at < "+arg(criteria.Until))
	}

	query := selectEventsSQL
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, version"
	if criteria.Limit > 0 {
		query += " LIMIT " + arg(criteria.Limit)
	}
	if criteria.Offset > 0 {
		query += " OFFSET " + arg(criteria.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageNotAvailable, err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		var result string
		err := row.Scan(&e.ID, &e.ItemID, &e.UserID, &e.Action, &e.FromState, &e.ToState,
			&e.Actor, &e.Version, &result, &e.Error, &e.RequestID, &e.Metadata, &e.CreatedAt)
		e.Result = Result(result)
		return e, err
	})
	if err != nil {
		return nil, errors.Join(ErrStorageNotAvailable, err)
	}
	return events, nil
}

func eventArgs(e Event) []any {
	return []any{
		e.ID, e.ItemID, e.UserID, e.Action, e.FromState, e.ToState,
		e.Actor, e.Version, string(e.Result), e.Error, e.RequestID, e.Metadata, e.CreatedAt,
	}
}
