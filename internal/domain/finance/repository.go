package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// PaymentRepository defines persistence operations for shipment payments.
// Payments are append-only; there is no update or delete.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ShipmentPayment, error)
	FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]ShipmentPayment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ShipmentPayment, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Create(ctx context.Context, payment *ShipmentPayment) error
	// SumByShipment returns the authoritative SUM of amount_egp over all
	// persisted payments for the shipment
	SumByShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error)
	// LastPaymentDate returns MAX(payment_date) for the shipment, nil
	// when no payments exist
	LastPaymentDate(ctx context.Context, shipmentID uuid.UUID) (*time.Time, error)
	CountByShipment(ctx context.Context, shipmentID uuid.UUID) (int64, error)
}

// ExchangeRateRepository defines persistence for the rate time series
type ExchangeRateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ExchangeRate, error)
	// FindLatest returns the newest rate by rate date for the pair,
	// shared.ErrNotFound when the pair has no history
	FindLatest(ctx context.Context, from, to valueobject.Currency) (*ExchangeRate, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ExchangeRate, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Create(ctx context.Context, rate *ExchangeRate) error
}
