package repo

import (
	"context"
	"database/sql"
)

// querier is satisfied by both *sql.DB and *sql.Tx. Mutating repo methods
// take an explicit *sql.Tx; passing nil runs the statement outside any
// transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func on(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}
