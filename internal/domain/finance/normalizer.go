package finance

import (
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// NormalizedAmount is the result of converting a payment to EGP.
// Rate is nil for EGP payments.
type NormalizedAmount struct {
	AmountOriginal decimal.Decimal
	AmountEgp      decimal.Decimal
	Rate           *decimal.Decimal
}

// NormalizeToEgp converts a payment amount into the books currency.
// EGP passes through unchanged with no rate. RMB requires a positive
// rate; the rate is kept at 4 decimal places and the converted amount
// rounds half-up to 2. USD payments are not accepted.
func NormalizeToEgp(currency valueobject.Currency, amount decimal.Decimal, rate *decimal.Decimal) (NormalizedAmount, error) {
	if !amount.IsPositive() {
		return NormalizedAmount{}, shared.NewDomainError("VALIDATION", "payment amount must be positive")
	}

	switch currency {
	case valueobject.EGP:
		rounded := amount.Round(valueobject.MoneyScale)
		return NormalizedAmount{
			AmountOriginal: rounded,
			AmountEgp:      rounded,
			Rate:           nil,
		}, nil

	case valueobject.RMB:
		if rate == nil || !rate.IsPositive() {
			return NormalizedAmount{}, shared.NewDomainError("VALIDATION", "RMB payments require a positive exchange rate")
		}
		normRate, err := valueobject.NormalizeRate(*rate)
		if err != nil {
			return NormalizedAmount{}, shared.NewDomainError("VALIDATION", "RMB payments require a positive exchange rate")
		}
		rounded := amount.Round(valueobject.MoneyScale)
		egp := rounded.Mul(normRate).Round(valueobject.MoneyScale)
		return NormalizedAmount{
			AmountOriginal: rounded,
			AmountEgp:      egp,
			Rate:           &normRate,
		}, nil

	default:
		return NormalizedAmount{}, shared.NewDomainError("VALIDATION", "payments are accepted in EGP or RMB only")
	}
}
