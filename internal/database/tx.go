package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so store methods run
// unchanged inside or outside a transaction.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Conn returns the transaction stored in ctx, or db when there is none.
func Conn(ctx context.Context, db *sqlx.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// InTx runs fn with a transaction carried in its context.  Nested calls
// join the outer transaction instead of opening a new one.
func InTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// TxRunner adapts InTx to an interface services can fake in tests.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner binds a runner to db.
func NewTxRunner(db *sqlx.DB) *TxRunner { return &TxRunner{db: db} }

// InTx implements the services' transaction interface.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return InTx(ctx, r.db, fn)
}
