package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs closures atomically. Repositories called with the
// closure's context join the transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}

// DBTX is implemented by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

type txContextKey string

const (
	txKey     txContextKey = "pgx_tx"
	txMarkKey txContextKey = "tx_active"
)

// SetTx stores a pgx transaction in the context
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return MarkTx(context.WithValue(ctx, txKey, tx))
}

// GetTx retrieves a pgx transaction from the context, nil if absent
func GetTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// MarkTx flags the context as running inside a transaction. Backends without
// pgx transactions (memory) use it so row-locking reads can be checked.
func MarkTx(ctx context.Context) context.Context {
	return context.WithValue(ctx, txMarkKey, true)
}

// InTx reports whether the context carries a transaction
func InTx(ctx context.Context) bool {
	active, _ := ctx.Value(txMarkKey).(bool)
	return active
}
