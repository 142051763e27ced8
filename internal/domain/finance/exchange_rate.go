package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// RateSource tells where an exchange rate figure came from
type RateSource string

const (
	RateSourceManual RateSource = "MANUAL"
	RateSourceBank   RateSource = "BANK"
	RateSourceMarket RateSource = "MARKET"
)

// IsValid checks if the rate source is a known value
func (s RateSource) IsValid() bool {
	switch s {
	case RateSourceManual, RateSourceBank, RateSourceMarket:
		return true
	}
	return false
}

// ExchangeRate is one point in the immutable rate time series.
// The latest row per pair by rate date is "current"; older rows are
// history and are never edited.
type ExchangeRate struct {
	shared.BaseEntity
	RateDate     time.Time
	FromCurrency valueobject.Currency
	ToCurrency   valueobject.Currency
	Rate         decimal.Decimal
	Source       RateSource
	CreatedBy    uuid.UUID
}

// NewExchangeRate validates the pair and records a rate at 4 decimal places
func NewExchangeRate(rateDate time.Time, from, to valueobject.Currency, rate decimal.Decimal, source RateSource, createdBy uuid.UUID) (*ExchangeRate, error) {
	if rateDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION", "rate date is required")
	}
	if !from.IsValid() || !to.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unsupported currency pair")
	}
	if from == to {
		return nil, shared.NewDomainError("VALIDATION", "currency pair must differ")
	}
	norm, err := valueobject.NormalizeRate(rate)
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION", "exchange rate must be positive")
	}
	if source == "" {
		source = RateSourceManual
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unknown rate source")
	}
	return &ExchangeRate{
		BaseEntity:   shared.NewBaseEntity(),
		RateDate:     rateDate,
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         norm,
		Source:       source,
		CreatedBy:    createdBy,
	}, nil
}
