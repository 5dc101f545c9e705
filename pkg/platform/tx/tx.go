// Package tx carries an open database transaction through a context so
// stores participating in a RunInTx boundary share it instead of the pool.
package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx returns a context carrying the given transaction.
func WithTx(ctx context.Context, t *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, t)
}

// From extracts the transaction from the context, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(txKey{}).(*sql.Tx)
	return t, ok
}

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Stores run their statements through it so the same code path serves both.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// QuerierFor returns the context transaction when present, the pool otherwise.
func QuerierFor(ctx context.Context, db *sql.DB) Querier {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}
