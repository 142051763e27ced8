package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormPaymentRepository_SumByShipment(t *testing.T) {
	t.Run("returns authoritative sum", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		shipmentID := uuid.New()
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_egp\), 0\) FROM "shipment_payments" WHERE shipment_id = \$1`).
			WithArgs(shipmentID).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("13800.00"))

		sum, err := repo.SumByShipment(context.Background(), shipmentID)

		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.RequireFromString("13800.00")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sum is zero when no payments exist", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		shipmentID := uuid.New()
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_egp\), 0\) FROM "shipment_payments" WHERE shipment_id = \$1`).
			WithArgs(shipmentID).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

		sum, err := repo.SumByShipment(context.Background(), shipmentID)

		require.NoError(t, err)
		assert.True(t, sum.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRepository_LastPaymentDate(t *testing.T) {
	t.Run("returns max payment date", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		shipmentID := uuid.New()
		latest := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT MAX\(payment_date\) FROM "shipment_payments" WHERE shipment_id = \$1`).
			WithArgs(shipmentID).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

		got, err := repo.LastPaymentDate(context.Background(), shipmentID)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Equal(latest))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when no payments exist", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		shipmentID := uuid.New()
		mock.ExpectQuery(`SELECT MAX\(payment_date\) FROM "shipment_payments" WHERE shipment_id = \$1`).
			WithArgs(shipmentID).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		got, err := repo.LastPaymentDate(context.Background(), shipmentID)

		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRepository_FindByID(t *testing.T) {
	t.Run("maps record not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		paymentID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "shipment_payments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(paymentID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		payment, err := repo.FindByID(context.Background(), paymentID)

		assert.Nil(t, payment)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionManager(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		tm := NewGormTransactionManager(db)

		mock.ExpectBegin()
		mock.ExpectCommit()

		var sawTx bool
		err := tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
			sawTx = TxFromContext(ctx) != nil
			return nil
		})

		require.NoError(t, err)
		assert.True(t, sawTx)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		tm := NewGormTransactionManager(db)

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := shared.NewDomainError("VALIDATION", "bad input")
		err := tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		tm := NewGormTransactionManager(db)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.WithinTransaction(context.Background(), func(outer context.Context) error {
			return tm.WithinTransaction(outer, func(inner context.Context) error {
				assert.Equal(t, TxFromContext(outer), TxFromContext(inner))
				return nil
			})
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
