package postgres

import (
	"context"
	"device-finance-backoffice/internal/domain/transaction"

	"gorm.io/gorm"
)

type txKey struct{}

// Transactor implements transaction.Manager on top of gorm.
type Transactor struct {
	db *DB
}

func NewTransactor(db *DB) transaction.Manager {
	return &Transactor{db: db}
}

// WithinTransaction joins the transaction already carried by ctx, if any.
// After-commit hooks registered by fn run once the outermost transaction commits.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	ctx, hooks := transaction.WithHooks(ctx)
	err := t.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		return err
	}

	hooks.Run()
	return nil
}

// conn returns the transaction bound to ctx or a fresh session on the pool.
func (d *DB) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return d.DB.WithContext(ctx)
}
