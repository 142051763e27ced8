package finance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/audit"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/domain/shipping"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
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

// lockingTxManager serializes units of work the way the shipment row lock
// does in postgres
type lockingTxManager struct {
	mu sync.Mutex
}

func (m *lockingTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

// memShipmentStore is an in-memory shipping.ShipmentRepository over a
// single shipment
type memShipmentStore struct {
	shipment *shipping.Shipment
}

func (s *memShipmentStore) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	if s.shipment == nil || s.shipment.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.shipment, nil
}

func (s *memShipmentStore) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	return s.FindByID(ctx, id)
}

func (s *memShipmentStore) FindByCode(ctx context.Context, code string) (*shipping.Shipment, error) {
	return nil, shared.ErrNotFound
}

func (s *memShipmentStore) FindAll(ctx context.Context, filter shared.Filter) ([]shipping.Shipment, error) {
	return nil, nil
}

func (s *memShipmentStore) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return 0, nil
}

func (s *memShipmentStore) Save(ctx context.Context, shipment *shipping.Shipment) error {
	s.shipment = shipment
	return nil
}

func (s *memShipmentStore) SaveWithLock(ctx context.Context, shipment *shipping.Shipment) error {
	return s.Save(ctx, shipment)
}

func (s *memShipmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

// memPaymentLedger is an in-memory finance.PaymentRepository
type memPaymentLedger struct {
	payments []finance.ShipmentPayment
}

func (l *memPaymentLedger) FindByID(ctx context.Context, id uuid.UUID) (*finance.ShipmentPayment, error) {
	return nil, shared.ErrNotFound
}

func (l *memPaymentLedger) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]finance.ShipmentPayment, error) {
	return l.payments, nil
}

func (l *memPaymentLedger) FindAll(ctx context.Context, filter shared.Filter) ([]finance.ShipmentPayment, error) {
	return l.payments, nil
}

func (l *memPaymentLedger) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return int64(len(l.payments)), nil
}

func (l *memPaymentLedger) Create(ctx context.Context, payment *finance.ShipmentPayment) error {
	l.payments = append(l.payments, *payment)
	return nil
}

func (l *memPaymentLedger) SumByShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range l.payments {
		if p.ShipmentID == shipmentID {
			total = total.Add(p.AmountEgp)
		}
	}
	return total, nil
}

func (l *memPaymentLedger) LastPaymentDate(ctx context.Context, shipmentID uuid.UUID) (*time.Time, error) {
	var last *time.Time
	for i := range l.payments {
		p := &l.payments[i]
		if p.ShipmentID != shipmentID {
			continue
		}
		if last == nil || p.PaymentDate.After(*last) {
			d := p.PaymentDate
			last = &d
		}
	}
	return last, nil
}

func (l *memPaymentLedger) CountByShipment(ctx context.Context, shipmentID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range l.payments {
		if p.ShipmentID == shipmentID {
			n++
		}
	}
	return n, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// shipmentWithBalance builds a shipment carrying the given final cost and
// paid total
func shipmentWithBalance(costEgp, paidEgp decimal.Decimal) *shipping.Shipment {
	s := &shipping.Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              "SH-2024-001",
		Name:              "Spring batch",
		SupplierID:        uuid.New(),
		SupplierName:      "Canton Traders",
		Status:            shipping.StatusReadyForReceipt,
		PurchaseDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Costs: shipping.CostBreakdown{
			FinalTotalCostEgp: costEgp,
		},
		TotalPaidEgp: paidEgp,
	}
	s.BalanceEgp = costEgp.Sub(paidEgp)
	return s
}

func newSettlementService(shipments *MockShipmentRepository, payments *MockPaymentRepository, audits *MockAuditLogRepository) *SettlementService {
	metrics, _ := telemetry.NewBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	return NewSettlementService(shipments, payments, audits, stubTxManager{}, metrics, zap.NewNop())
}

func TestSettlementService_RecordPayment(t *testing.T) {
	t.Run("records a partial EGP payment", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		shipment := shipmentWithBalance(dec("10000.00"), decimal.Zero)
		paymentDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

		shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		payments.On("Create", mock.Anything, mock.AnythingOfType("*finance.ShipmentPayment")).Return(nil)
		payments.On("SumByShipment", mock.Anything, shipment.ID).Return(dec("4000.00"), nil)
		payments.On("LastPaymentDate", mock.Anything, shipment.ID).Return(&paymentDate, nil)
		shipments.On("Save", mock.Anything, shipment).Return(nil)
		audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

		result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    paymentDate,
			Currency:       valueobject.EGP,
			AmountOriginal: dec("4000.00"),
			Method:         finance.MethodBankTransfer,
			ReceiverName:   "Hassan",
			CreatedBy:      uuid.New(),
		})

		require.NoError(t, err)
		assert.True(t, result.TotalPaidEgp.Equal(dec("4000.00")))
		assert.True(t, result.BalanceEgp.Equal(dec("6000.00")))
		assert.True(t, result.RemainingBefore.Equal(dec("10000.00")))
		assert.Equal(t, shipping.PaymentStatePartiallyPaid, result.PaymentState)
		assert.True(t, result.Payment.AmountEgp.Equal(dec("4000.00")))
		assert.Nil(t, result.Payment.ExchangeRateToEgp)
		shipments.AssertExpectations(t)
		payments.AssertExpectations(t)
	})

	t.Run("converts RMB at the supplied rate", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		shipment := shipmentWithBalance(dec("10000.00"), decimal.Zero)
		paymentDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		rate := dec("6.95")

		shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		payments.On("Create", mock.Anything, mock.AnythingOfType("*finance.ShipmentPayment")).Return(nil)
		payments.On("SumByShipment", mock.Anything, shipment.ID).Return(dec("695.00"), nil)
		payments.On("LastPaymentDate", mock.Anything, shipment.ID).Return(&paymentDate, nil)
		shipments.On("Save", mock.Anything, shipment).Return(nil)
		audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

		result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    paymentDate,
			Currency:       valueobject.RMB,
			AmountOriginal: dec("100"),
			ExchangeRate:   &rate,
			CreatedBy:      uuid.New(),
		})

		require.NoError(t, err)
		assert.True(t, result.Payment.AmountEgp.Equal(dec("695.00")))
		require.NotNil(t, result.Payment.ExchangeRateToEgp)
		assert.True(t, result.Payment.ExchangeRateToEgp.Equal(dec("6.95")))
		assert.Equal(t, finance.ComponentGeneral, result.Payment.CostComponent)
	})

	t.Run("rejects a payment exceeding the remaining balance", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		shipment := shipmentWithBalance(dec("10000.00"), dec("9900.00"))
		rate := dec("6.95")

		shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)

		result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Currency:       valueobject.RMB,
			AmountOriginal: dec("20"),
			ExchangeRate:   &rate,
			CreatedBy:      uuid.New(),
		})

		assert.Nil(t, result)
		var overErr *finance.OverpaymentError
		require.ErrorAs(t, err, &overErr)
		assert.True(t, overErr.RemainingEgp.Equal(dec("100.00")))
		assert.True(t, overErr.AttemptedEgp.Equal(dec("139.00")))
		payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("settles exactly the remaining balance", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		shipment := shipmentWithBalance(dec("10000.00"), dec("6000.00"))
		paymentDate := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

		shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		payments.On("Create", mock.Anything, mock.AnythingOfType("*finance.ShipmentPayment")).Return(nil)
		payments.On("SumByShipment", mock.Anything, shipment.ID).Return(dec("10000.00"), nil)
		payments.On("LastPaymentDate", mock.Anything, shipment.ID).Return(&paymentDate, nil)
		shipments.On("Save", mock.Anything, shipment).Return(nil)
		audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

		result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    paymentDate,
			Currency:       valueobject.EGP,
			AmountOriginal: dec("4000.00"),
			CreatedBy:      uuid.New(),
		})

		require.NoError(t, err)
		assert.True(t, result.BalanceEgp.IsZero())
		assert.Equal(t, shipping.PaymentStateSettled, result.PaymentState)
	})

	t.Run("rejects USD payments", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		shipment := shipmentWithBalance(dec("10000.00"), decimal.Zero)
		shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)

		result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Currency:       valueobject.USD,
			AmountOriginal: dec("500"),
			CreatedBy:      uuid.New(),
		})

		assert.Nil(t, result)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION", domainErr.Code)
		payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("second of two competing payments sees the updated balance", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		// Both payments fit the original balance on their own but not
		// together. The row lock serializes them, so the second locks a
		// shipment whose paid total already includes the first.
		shipment := shipmentWithBalance(dec("10000.00"), decimal.Zero)
		paymentDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

		shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		payments.On("Create", mock.Anything, mock.AnythingOfType("*finance.ShipmentPayment")).Return(nil).Once()
		payments.On("SumByShipment", mock.Anything, shipment.ID).Return(dec("7000.00"), nil).Once()
		payments.On("LastPaymentDate", mock.Anything, shipment.ID).Return(&paymentDate, nil).Once()
		shipments.On("Save", mock.Anything, shipment).Return(nil).Once()
		audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

		first, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    paymentDate,
			Currency:       valueobject.EGP,
			AmountOriginal: dec("7000.00"),
			CreatedBy:      uuid.New(),
		})
		require.NoError(t, err)
		assert.True(t, first.BalanceEgp.Equal(dec("3000.00")))

		second, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipment.ID,
			PaymentDate:    paymentDate,
			Currency:       valueobject.EGP,
			AmountOriginal: dec("7000.00"),
			CreatedBy:      uuid.New(),
		})

		assert.Nil(t, second)
		var overErr *finance.OverpaymentError
		require.ErrorAs(t, err, &overErr)
		assert.True(t, overErr.RemainingEgp.Equal(dec("3000.00")))
		payments.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("serializes concurrent payments on the same shipment", func(t *testing.T) {
		shipment := shipmentWithBalance(dec("600.00"), decimal.Zero)
		store := &memShipmentStore{shipment: shipment}
		ledger := &memPaymentLedger{}
		svc := NewSettlementService(store, ledger, nil, &lockingTxManager{}, nil, zap.NewNop())

		paymentDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		createdBy := uuid.New()

		// Each payment fits the remaining 600.00 on its own; together they
		// overdraw it. Whichever acquires the lock second must be rejected.
		amounts := []string{"350.00", "300.00"}
		errs := make(chan error, len(amounts))
		var wg sync.WaitGroup
		for _, amount := range amounts {
			wg.Add(1)
			go func(amount string) {
				defer wg.Done()
				_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
					ShipmentID:     shipment.ID,
					PaymentDate:    paymentDate,
					Currency:       valueobject.EGP,
					AmountOriginal: dec(amount),
					CreatedBy:      createdBy,
				})
				errs <- err
			}(amount)
		}
		wg.Wait()
		close(errs)

		var rejections int
		for err := range errs {
			if err == nil {
				continue
			}
			var overErr *finance.OverpaymentError
			require.ErrorAs(t, err, &overErr)
			rejections++
		}

		assert.Equal(t, 1, rejections)
		assert.Len(t, ledger.payments, 1)
		booked := ledger.payments[0].AmountEgp
		assert.True(t, shipment.TotalPaidEgp.Equal(booked))
		assert.True(t, shipment.BalanceEgp.Equal(dec("600.00").Sub(booked)))
	})

	t.Run("propagates lock timeout", func(t *testing.T) {
		shipments := new(MockShipmentRepository)
		payments := new(MockPaymentRepository)
		audits := new(MockAuditLogRepository)
		svc := newSettlementService(shipments, payments, audits)

		shipmentID := uuid.New()
		shipments.On("FindByIDForUpdate", mock.Anything, shipmentID).Return(nil, shared.ErrLockTimeout)

		result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			ShipmentID:     shipmentID,
			PaymentDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Currency:       valueobject.EGP,
			AmountOriginal: dec("100.00"),
			CreatedBy:      uuid.New(),
		})

		assert.Nil(t, result)
		assert.True(t, errors.Is(err, shared.ErrLockTimeout))
	})
}
