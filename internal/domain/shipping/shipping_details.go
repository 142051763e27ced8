package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// ShippingDetails holds the freight step of a shipment. The two exchange
// rates are historical snapshots taken when the step is saved; they never
// track the live rate table afterwards.
type ShippingDetails struct {
	CommissionRatePct     decimal.Decimal
	ShippingAreaSqm       decimal.Decimal
	ShippingCostPerSqmUsd decimal.Decimal
	UsdToRmbRate          decimal.Decimal
	RmbToEgpRate          decimal.Decimal
}

// NewShippingDetails validates and normalizes the freight inputs.
// Rates are rounded to the rate scale; both must be positive.
func NewShippingDetails(commissionRatePct, areaSqm, perSqmUsd, usdToRmb, rmbToEgp decimal.Decimal) (*ShippingDetails, error) {
	if commissionRatePct.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "commission rate cannot be negative")
	}
	if areaSqm.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "shipping area cannot be negative")
	}
	if perSqmUsd.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "shipping cost per sqm cannot be negative")
	}
	usdToRmbNorm, err := valueobject.NormalizeRate(usdToRmb)
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION", "USD to RMB rate must be positive")
	}
	rmbToEgpNorm, err := valueobject.NormalizeRate(rmbToEgp)
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION", "RMB to EGP rate must be positive")
	}
	return &ShippingDetails{
		CommissionRatePct:     commissionRatePct,
		ShippingAreaSqm:       areaSqm,
		ShippingCostPerSqmUsd: perSqmUsd,
		UsdToRmbRate:          usdToRmbNorm,
		RmbToEgpRate:          rmbToEgpNorm,
	}, nil
}
