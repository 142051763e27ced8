package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shipping"
)

// lockTimeoutErr mimics the driver error Postgres raises when lock_timeout
// expires while waiting on a row lock
type lockTimeoutErr struct{}

func (lockTimeoutErr) Error() string    { return "ERROR: canceling statement due to lock timeout (SQLSTATE 55P03)" }
func (lockTimeoutErr) SQLState() string { return lockNotAvailable }

func newTestShipment(t *testing.T) *shipping.Shipment {
	t.Helper()
	item, err := shipping.NewShipmentItem("ceramic mugs", 40, 24, decimal.RequireFromString("12.50"))
	require.NoError(t, err)

	shipment, err := shipping.NewShipment(
		"SH-2024-001", "Spring batch",
		uuid.New(), "Canton Traders",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		[]shipping.ShipmentItem{*item},
	)
	require.NoError(t, err)
	return shipment
}

func TestGormShipmentRepository_FindByID(t *testing.T) {
	t.Run("loads shipment with items", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormShipmentRepository(db, 0)

		shipmentID := uuid.New()
		itemID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "shipments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(shipmentID, 1).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "version", "code", "name", "supplier_name", "status",
				"has_details", "final_total_cost_egp", "balance_egp",
			}).AddRow(
				shipmentID, 3, "SH-2024-001", "Spring batch", "Canton Traders", "READY_FOR_RECEIPT",
				false, "45000.00", "31200.00",
			))
		mock.ExpectQuery(`SELECT \* FROM "shipment_items" WHERE "shipment_items"\."shipment_id" = \$1`).
			WithArgs(shipmentID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "shipment_id", "description", "cartons", "pieces_per_carton", "unit_price_rmb",
			}).AddRow(itemID, shipmentID, "ceramic mugs", 40, 24, "12.50"))

		shipment, err := repo.FindByID(context.Background(), shipmentID)

		require.NoError(t, err)
		assert.Equal(t, "SH-2024-001", shipment.Code)
		assert.Equal(t, shipping.StatusReadyForReceipt, shipment.Status)
		assert.Equal(t, 3, shipment.Version)
		assert.Nil(t, shipment.Details)
		require.Len(t, shipment.Items, 1)
		assert.Equal(t, "ceramic mugs", shipment.Items[0].Description)
		assert.True(t, shipment.BalanceEgp.Equal(decimal.RequireFromString("31200.00")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps record not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormShipmentRepository(db, 0)

		shipmentID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "shipments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(shipmentID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		shipment, err := repo.FindByID(context.Background(), shipmentID)

		assert.Nil(t, shipment)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormShipmentRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("sets lock timeout and locks the row", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormShipmentRepository(db, 500*time.Millisecond)

		shipmentID := uuid.New()
		mock.ExpectExec(`SET LOCAL lock_timeout = '500ms'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "shipments" WHERE id = \$1 .* FOR UPDATE`).
			WithArgs(shipmentID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "version", "code", "status"}).
				AddRow(shipmentID, 1, "SH-2024-001", "NEW"))
		mock.ExpectQuery(`SELECT \* FROM "shipment_items" WHERE "shipment_items"\."shipment_id" = \$1`).
			WithArgs(shipmentID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "shipment_id"}))

		shipment, err := repo.FindByIDForUpdate(context.Background(), shipmentID)

		require.NoError(t, err)
		assert.Equal(t, "SH-2024-001", shipment.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps lock timeout to domain error", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormShipmentRepository(db, 500*time.Millisecond)

		shipmentID := uuid.New()
		mock.ExpectExec(`SET LOCAL lock_timeout = '500ms'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "shipments" WHERE id = \$1 .* FOR UPDATE`).
			WithArgs(shipmentID, 1).
			WillReturnError(lockTimeoutErr{})

		shipment, err := repo.FindByIDForUpdate(context.Background(), shipmentID)

		assert.Nil(t, shipment)
		assert.ErrorIs(t, err, shared.ErrLockTimeout)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormShipmentRepository_SaveWithLock(t *testing.T) {
	t.Run("stale version returns concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormShipmentRepository(db, 0)

		shipment := newTestShipment(t)
		loadedVersion := shipment.Version

		mock.ExpectExec(`UPDATE "shipments" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), shipment)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, loadedVersion, shipment.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormShipmentRepository_Delete(t *testing.T) {
	t.Run("missing shipment returns not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormShipmentRepository(db, 0)

		shipmentID := uuid.New()
		mock.ExpectExec(`DELETE FROM "shipment_items" WHERE shipment_id = \$1`).
			WithArgs(shipmentID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "shipments" WHERE id = \$1`).
			WithArgs(shipmentID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), shipmentID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
