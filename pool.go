package pgtx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Beginner is anything that can open a transaction: *pgxpool.Pool, *pgx.Conn,
// or another pgx.Tx. This package owns the transaction it begins; the same
// underlying connection must not be driven from anywhere else until the
// transaction is decided.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Executor is the slice of pgx.Tx a unit of work gets to issue statements
// with. Transaction control never goes through it.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool opens a pgx pool from a connection string and verifies it answers.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &Error{Kind: KindConnection, Err: err}
	}
	return pool, nil
}
