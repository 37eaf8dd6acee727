// Package pg connects to PostgreSQL with pgx/v5, applies goose migrations
// and classifies driver errors.
//
// Config is filled from PG_* environment variables. Connect retries until
// the database answers a ping, Migrate runs migrations/*.sql through goose
// on the same pool, and Healthcheck returns a probe for readiness checks.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//
// The Is*Error helpers look through wrapped errors for pgx.ErrNoRows or a
// *pgconn.PgError with the matching SQLSTATE.
package pg
