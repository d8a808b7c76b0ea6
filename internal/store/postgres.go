package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxConn is the part of *pgxpool.Pool and pgx.Tx the ledger uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxExecer struct{ c pgxConn }

func (e pgxExecer) exec(ctx context.Context, q string, args ...any) (int64, error) {
	tag, err := e.c.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (e pgxExecer) queryRow(ctx context.Context, q string, args ...any) rowScanner {
	return e.c.QueryRow(ctx, q, args...)
}

func (e pgxExecer) query(ctx context.Context, q string, args ...any) (rowIter, error) {
	return e.c.Query(ctx, q, args...)
}

// Postgres is the pgx-backed Store. Balance reads inside a transaction take a row lock,
// so concurrent imports touching the same player serialize on that row.
type Postgres struct {
	*queries
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and checks it. Tables are created by Migrate.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres connection string")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{queries: &queries{x: pgxExecer{pool}, d: postgresDialect}, pool: pool}, nil
}

func (s *Postgres) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()
	if err := fn(&queries{x: pgxExecer{tx}, d: postgresDialect}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
