package shipping

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/audit"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/inventory"
	"github.com/cargoledger/backend/internal/domain/partner"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/domain/shipping"
)

// MockShipmentRepository is a mock implementation of shipping.ShipmentRepository
type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) FindByCode(ctx context.Context, code string) (*shipping.Shipment, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]shipping.Shipment, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]shipping.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShipmentRepository) Save(ctx context.Context, shipment *shipping.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) SaveWithLock(ctx context.Context, shipment *shipping.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of finance.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ShipmentPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ShipmentPayment), args.Error(1)
}

func (m *MockPaymentRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]finance.ShipmentPayment, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).([]finance.ShipmentPayment), args.Error(1)
}

func (m *MockPaymentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.ShipmentPayment, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.ShipmentPayment), args.Error(1)
}

func (m *MockPaymentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *finance.ShipmentPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SumByShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) LastPaymentDate(ctx context.Context, shipmentID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockPaymentRepository) CountByShipment(ctx context.Context, shipmentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockExchangeRateRepository is a mock implementation of finance.ExchangeRateRepository
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ExchangeRate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) FindLatest(ctx context.Context, from, to valueobject.Currency) (*finance.ExchangeRate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.ExchangeRate, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExchangeRateRepository) Create(ctx context.Context, rate *finance.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

// MockMovementRepository is a mock implementation of inventory.MovementRepository
type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Movement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Movement), args.Error(1)
}

func (m *MockMovementRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]inventory.Movement, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).([]inventory.Movement), args.Error(1)
}

func (m *MockMovementRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Movement, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]inventory.Movement), args.Error(1)
}

func (m *MockMovementRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMovementRepository) CreateBatch(ctx context.Context, movements []inventory.Movement) error {
	args := m.Called(ctx, movements)
	return args.Error(0)
}

// MockSupplierRepository is a mock implementation of partner.SupplierRepository
type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindByName(ctx context.Context, name string) (*partner.Supplier, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Supplier, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAuditLogRepository is a mock implementation of audit.LogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *audit.Log) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.Log, error) {
	args := m.Called(ctx, entityType, entityID)
	return args.Get(0).([]audit.Log), args.Error(1)
}

func (m *MockAuditLogRepository) FindAll(ctx context.Context, filter shared.Filter) ([]audit.Log, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]audit.Log), args.Error(1)
}

func (m *MockAuditLogRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// stubTxManager runs the unit of work directly on the given context
type stubTxManager struct{}

func (stubTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type serviceMocks struct {
	shipments *MockShipmentRepository
	payments  *MockPaymentRepository
	rates     *MockExchangeRateRepository
	movements *MockMovementRepository
	suppliers *MockSupplierRepository
	audits    *MockAuditLogRepository
}

func newShipmentService(t *testing.T) (*ShipmentService, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		shipments: new(MockShipmentRepository),
		payments:  new(MockPaymentRepository),
		rates:     new(MockExchangeRateRepository),
		movements: new(MockMovementRepository),
		suppliers: new(MockSupplierRepository),
		audits:    new(MockAuditLogRepository),
	}
	m.audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	svc := NewShipmentService(
		m.shipments, m.payments, m.rates, m.movements, m.suppliers, m.audits,
		stubTxManager{}, nil, zap.NewNop())
	return svc, m
}

func activeSupplier() *partner.Supplier {
	s, _ := partner.NewSupplier("Canton Traders", "Mr. Wang", "", "", "", "")
	return s
}

func TestShipmentService_Create(t *testing.T) {
	t.Run("creates a shipment with purchase items", func(t *testing.T) {
		svc, m := newShipmentService(t)
		supplier := activeSupplier()

		m.shipments.On("FindByCode", mock.Anything, "SH-2024-001").Return(nil, shared.ErrNotFound)
		m.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)
		m.rates.On("FindLatest", mock.Anything, valueobject.RMB, valueobject.EGP).Return(nil, shared.ErrNotFound)
		m.shipments.On("Save", mock.Anything, mock.AnythingOfType("*shipping.Shipment")).Return(nil)

		shipment, err := svc.Create(context.Background(), CreateShipmentRequest{
			Code:         "SH-2024-001",
			Name:         "Spring batch",
			SupplierID:   supplier.ID,
			PurchaseDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Items: []ItemInput{
				{Description: "ceramic mugs", Cartons: 40, PiecesPerCarton: 24, UnitPriceRmb: dec("12.50")},
			},
			CreatedBy: uuid.New(),
		})

		require.NoError(t, err)
		assert.Equal(t, "SH-2024-001", shipment.Code)
		assert.Equal(t, shipping.StatusNew, shipment.Status)
		assert.Equal(t, "Canton Traders", shipment.SupplierName)
		require.Len(t, shipment.Items, 1)
		// 40 cartons * 24 pieces * 12.50 RMB
		assert.True(t, shipment.Costs.PurchaseCostRmb.Equal(dec("12000.00")))
		m.shipments.AssertExpectations(t)
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		svc, m := newShipmentService(t)
		existing := &shipping.Shipment{Code: "SH-2024-001"}

		m.shipments.On("FindByCode", mock.Anything, "SH-2024-001").Return(existing, nil)

		shipment, err := svc.Create(context.Background(), CreateShipmentRequest{
			Code:       "SH-2024-001",
			Name:       "Spring batch",
			SupplierID: uuid.New(),
			Items:      []ItemInput{{Description: "mugs", Cartons: 1, PiecesPerCarton: 1, UnitPriceRmb: dec("1")}},
		})

		assert.Nil(t, shipment)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
		m.shipments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects a deactivated supplier", func(t *testing.T) {
		svc, m := newShipmentService(t)
		supplier := activeSupplier()
		supplier.Deactivate()

		m.shipments.On("FindByCode", mock.Anything, "SH-2024-002").Return(nil, shared.ErrNotFound)
		m.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)

		shipment, err := svc.Create(context.Background(), CreateShipmentRequest{
			Code:       "SH-2024-002",
			Name:       "Summer batch",
			SupplierID: supplier.ID,
			Items:      []ItemInput{{Description: "mugs", Cartons: 1, PiecesPerCarton: 1, UnitPriceRmb: dec("1")}},
		})

		assert.Nil(t, shipment)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION", domainErr.Code)
	})
}

func buildShipment(t *testing.T) *shipping.Shipment {
	t.Helper()
	item, err := shipping.NewShipmentItem("ceramic mugs", 40, 24, dec("12.50"))
	require.NoError(t, err)
	shipment, err := shipping.NewShipment(
		"SH-2024-001", "Spring batch",
		uuid.New(), "Canton Traders",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		[]shipping.ShipmentItem{*item})
	require.NoError(t, err)
	return shipment
}

func TestShipmentService_SaveShippingDetails(t *testing.T) {
	t.Run("locks explicit rates and advances the status", func(t *testing.T) {
		svc, m := newShipmentService(t)
		shipment := buildShipment(t)
		usdToRmb := dec("7.25")
		rmbToEgp := dec("6.95")

		m.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		m.rates.On("FindLatest", mock.Anything, valueobject.RMB, valueobject.EGP).Return(nil, shared.ErrNotFound).Maybe()
		m.shipments.On("Save", mock.Anything, shipment).Return(nil)

		updated, err := svc.SaveShippingDetails(context.Background(), shipment.ID, ShippingDetailsRequest{
			CommissionRatePct:     dec("3.5"),
			ShippingAreaSqm:       dec("24"),
			ShippingCostPerSqmUsd: dec("45"),
			UsdToRmbRate:          &usdToRmb,
			RmbToEgpRate:          &rmbToEgp,
			UpdatedBy:             uuid.New(),
		})

		require.NoError(t, err)
		assert.Equal(t, shipping.StatusReadyForReceipt, updated.Status)
		require.NotNil(t, updated.Details)
		assert.True(t, updated.Details.RmbToEgpRate.Equal(rmbToEgp))
		assert.False(t, updated.Costs.Preliminary)
	})

	t.Run("falls back to the latest stored rates", func(t *testing.T) {
		svc, m := newShipmentService(t)
		shipment := buildShipment(t)

		rateDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		usdRate, err := finance.NewExchangeRate(rateDate, valueobject.USD, valueobject.RMB, dec("7.25"),
			finance.RateSourceManual, uuid.New())
		require.NoError(t, err)
		egpRate, err := finance.NewExchangeRate(rateDate, valueobject.RMB, valueobject.EGP, dec("6.95"),
			finance.RateSourceManual, uuid.New())
		require.NoError(t, err)

		m.rates.On("FindLatest", mock.Anything, valueobject.USD, valueobject.RMB).Return(usdRate, nil)
		m.rates.On("FindLatest", mock.Anything, valueobject.RMB, valueobject.EGP).Return(egpRate, nil)
		m.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		m.shipments.On("Save", mock.Anything, shipment).Return(nil)

		updated, err := svc.SaveShippingDetails(context.Background(), shipment.ID, ShippingDetailsRequest{
			CommissionRatePct:     dec("3.5"),
			ShippingAreaSqm:       dec("24"),
			ShippingCostPerSqmUsd: dec("45"),
			UpdatedBy:             uuid.New(),
		})

		require.NoError(t, err)
		require.NotNil(t, updated.Details)
		assert.True(t, updated.Details.UsdToRmbRate.Equal(dec("7.25")))
		assert.True(t, updated.Details.RmbToEgpRate.Equal(dec("6.95")))
	})

	t.Run("requires a rate when none is on file", func(t *testing.T) {
		svc, m := newShipmentService(t)

		m.rates.On("FindLatest", mock.Anything, valueobject.USD, valueobject.RMB).Return(nil, shared.ErrNotFound)

		updated, err := svc.SaveShippingDetails(context.Background(), uuid.New(), ShippingDetailsRequest{
			CommissionRatePct:     dec("3.5"),
			ShippingAreaSqm:       dec("24"),
			ShippingCostPerSqmUsd: dec("45"),
		})

		assert.Nil(t, updated)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION", domainErr.Code)
	})
}

func TestShipmentService_MarkReceived(t *testing.T) {
	t.Run("writes one movement per item at the landed unit cost", func(t *testing.T) {
		svc, m := newShipmentService(t)
		shipment := buildShipment(t)
		details, err := shipping.NewShippingDetails(dec("3.5"), dec("24"), dec("45"), dec("7.25"), dec("6.95"))
		require.NoError(t, err)
		require.NoError(t, shipment.SaveShippingDetails(details))

		var captured []inventory.Movement
		m.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		m.rates.On("FindLatest", mock.Anything, valueobject.RMB, valueobject.EGP).Return(nil, shared.ErrNotFound).Maybe()
		m.movements.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]inventory.Movement")).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).([]inventory.Movement)
			}).Return(nil)
		m.shipments.On("Save", mock.Anything, shipment).Return(nil)

		updated, err := svc.MarkReceived(context.Background(), shipment.ID, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, shipping.StatusReceived, updated.Status)
		require.Len(t, captured, 1)
		assert.Equal(t, int64(960), captured[0].Quantity)
		// 12000 RMB * 6.95 / 960 pieces, rounded half-up to 2 places
		assert.True(t, captured[0].UnitCostEgp.Equal(dec("86.88")))
		assert.Equal(t, inventory.MovementReceipt, captured[0].MovementType)
	})

	t.Run("rejects receipt before shipping details", func(t *testing.T) {
		svc, m := newShipmentService(t)
		shipment := buildShipment(t)

		m.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)

		updated, err := svc.MarkReceived(context.Background(), shipment.ID, uuid.New())

		assert.Nil(t, updated)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		m.movements.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})
}

func TestShipmentService_Delete(t *testing.T) {
	t.Run("rejects deleting a shipment with payments", func(t *testing.T) {
		svc, m := newShipmentService(t)
		shipment := buildShipment(t)

		m.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		m.payments.On("CountByShipment", mock.Anything, shipment.ID).Return(int64(2), nil)

		err := svc.Delete(context.Background(), shipment.ID, uuid.New())

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		m.shipments.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes an unpaid shipment", func(t *testing.T) {
		svc, m := newShipmentService(t)
		shipment := buildShipment(t)

		m.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		m.payments.On("CountByShipment", mock.Anything, shipment.ID).Return(int64(0), nil)
		m.shipments.On("Delete", mock.Anything, shipment.ID).Return(nil)

		err := svc.Delete(context.Background(), shipment.ID, uuid.New())

		require.NoError(t, err)
		m.shipments.AssertExpectations(t)
	})
}
