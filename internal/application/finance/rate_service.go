package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

// ExchangeRateService manages the immutable exchange rate time series
type ExchangeRateService struct {
	rates  finance.ExchangeRateRepository
	logger *zap.Logger
}

// NewExchangeRateService creates the exchange rate service
func NewExchangeRateService(rates finance.ExchangeRateRepository, logger *zap.Logger) *ExchangeRateService {
	return &ExchangeRateService{rates: rates, logger: logger}
}

// CreateRateRequest is the input to rate creation
type CreateRateRequest struct {
	RateDate     time.Time
	FromCurrency valueobject.Currency
	ToCurrency   valueobject.Currency
	Rate         decimal.Decimal
	Source       finance.RateSource
	CreatedBy    uuid.UUID
}

// Create appends a new rate to the series. Existing rows are never edited.
func (s *ExchangeRateService) Create(ctx context.Context, req CreateRateRequest) (*finance.ExchangeRate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "create")
	defer span.End()

	rate, err := finance.NewExchangeRate(req.RateDate, req.FromCurrency, req.ToCurrency, req.Rate, req.Source, req.CreatedBy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.rates.Create(ctx, rate); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("exchange rate recorded",
		zap.String("pair", string(req.FromCurrency)+"/"+string(req.ToCurrency)),
		zap.String("rate", rate.Rate.StringFixed(valueobject.RateScale)),
		zap.Time("rate_date", rate.RateDate))
	return rate, nil
}

// Latest returns the current rate for a pair, shared.ErrNotFound when the
// pair has no history
func (s *ExchangeRateService) Latest(ctx context.Context, from, to valueobject.Currency) (*finance.ExchangeRate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "latest")
	defer span.End()

	if !from.IsValid() || !to.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unsupported currency pair")
	}
	rate, err := s.rates.FindLatest(ctx, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return rate, nil
}

// LatestRmbToEgp is the fallback rate for preliminary cost conversion.
// Returns zero when no rate is known yet.
func (s *ExchangeRateService) LatestRmbToEgp(ctx context.Context) decimal.Decimal {
	rate, err := s.rates.FindLatest(ctx, valueobject.RMB, valueobject.EGP)
	if err != nil {
		return decimal.Zero
	}
	return rate.Rate
}

// List returns the rate history, paginated
func (s *ExchangeRateService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[finance.ExchangeRate], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "list")
	defer span.End()

	rates, err := s.rates.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[finance.ExchangeRate]{}, err
	}
	total, err := s.rates.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[finance.ExchangeRate]{}, err
	}
	return shared.NewPaginated(rates, total, filter.Page, filter.PageSize), nil
}
