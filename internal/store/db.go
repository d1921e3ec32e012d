package store

import (
	"context"
	"errors"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pricing/internal/coupon"
)

// ErrNotFound reports that a mutation matched no row.
var ErrNotFound = errors.New("store: not found")

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// DBTX abstracts a pgx connection, pool or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries bundles all SQL access of the pricing service. Configuration rows
// are validated as they are loaded; rows failing validation are skipped so a
// bad admin edit degrades to "rule does not apply" instead of breaking
// quotes.
type Queries struct {
	db       DBTX
	validate *validator.Validate
}

// New constructs a query layer over the given connection.
func New(db DBTX) *Queries {
	return &Queries{db: db, validate: validator.New()}
}

// WithTx returns a copy of Queries scoped to the transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx, validate: q.validate}
}

// TxRunner runs coupon settlement logic inside a database transaction.
type TxRunner struct {
	Pool *pgxpool.Pool
}

// InTx begins a transaction, hands a transaction-scoped Querier to fn and
// commits when fn succeeds.
func (r TxRunner) InTx(ctx context.Context, fn func(coupon.Querier) error) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(New(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (q *Queries) valid(v any) bool {
	if q.validate == nil {
		return true
	}
	return q.validate.Struct(v) == nil
}
