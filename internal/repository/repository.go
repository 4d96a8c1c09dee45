// Package repository implements database/sql persistence for the partner
// dashboard entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Store error kinds surfaced to services and the HTTP boundary.
var (
	// ErrNotFound means no row exists for the given key.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict means a conditional update matched no row because the
	// row changed underneath the caller.
	ErrConflict = errors.New("repository: conflicting update")
	// ErrDuplicate means a unique constraint rejected an insert.
	ErrDuplicate = errors.New("repository: duplicate")
)

// executor abstracts *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type contextKey string

const txKey = contextKey("tx")

// WithTx returns a context carrying the transaction; repositories route
// their statements through it when present.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// getExecutor returns the transaction from the context when present,
// otherwise the plain connection.
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}
