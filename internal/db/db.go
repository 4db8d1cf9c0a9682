// Package db holds the typed Postgres access layer: models, one method per
// SQL statement, the embedded migrations and transaction helpers.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// New binds queries to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries implements Querier over a DBTX.
type Queries struct {
	db DBTX
}

// WithTx rebinds the queries to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// TxRunner runs fn with a Querier bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Querier) error) error
}

// PoolTx starts transactions on a pgx pool.
type PoolTx struct {
	Pool *pgxpool.Pool
}

// InTx implements TxRunner.
func (p PoolTx) InTx(ctx context.Context, fn func(Querier) error) error {
	return pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}
