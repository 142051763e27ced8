package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/cargoledger/backend/internal/domain/shared"
)

type txContextKey struct{}

// WithTx stores a transaction handle in the context so repositories join it
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction handle from the context, nil when
// no transaction is running
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// GormTransactionManager implements shared.TransactionManager on GORM.
// Repository calls made with the context passed to fn run on the same
// transaction; a nested WithinTransaction joins the outer one.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a transaction manager over the connection
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// WithinTransaction runs fn atomically. A returned error rolls back.
func (m *GormTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}

var _ shared.TransactionManager = (*GormTransactionManager)(nil)

// conn resolves the handle repositories should use: the context transaction
// when one is running, the base connection otherwise
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
