package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

var oneHundred = decimal.NewFromInt(100)

// CostBreakdown is the full recomputed cost picture of a shipment.
// All monetary amounts are rounded half-up to 2 decimal places.
type CostBreakdown struct {
	PurchaseCostRmb   decimal.Decimal
	PurchaseCostEgp   decimal.Decimal
	CommissionRmb     decimal.Decimal
	CommissionEgp     decimal.Decimal
	ShippingCostUsd   decimal.Decimal
	ShippingCostRmb   decimal.Decimal
	ShippingCostEgp   decimal.Decimal
	CustomsCostEgp    decimal.Decimal
	ClearanceCostEgp  decimal.Decimal
	FinalTotalCostEgp decimal.Decimal
	// Preliminary is set when EGP conversion used a fallback rate because
	// shipping details (and their locked rate snapshot) do not exist yet.
	Preliminary bool
}

// CostInputs carries everything the recomputation reads. FallbackRmbToEgp
// is the latest known market rate, used only before shipping details lock
// a snapshot; zero means no rate is known and EGP conversions stay zero.
type CostInputs struct {
	Items            []ShipmentItem
	Details          *ShippingDetails
	FallbackRmbToEgp decimal.Decimal
}

// ComputeCosts recomputes every derived cost component from scratch.
// It is a pure function: absent inputs yield zero components, never errors,
// and recomputing with unchanged inputs yields identical totals.
func ComputeCosts(in CostInputs) CostBreakdown {
	var b CostBreakdown

	for i := range in.Items {
		item := &in.Items[i]
		b.PurchaseCostRmb = b.PurchaseCostRmb.Add(item.LineTotalRmb())
		b.CustomsCostEgp = b.CustomsCostEgp.Add(item.CustomsTotalEgp())
		b.ClearanceCostEgp = b.ClearanceCostEgp.Add(item.ClearanceTotalEgp())
	}
	b.PurchaseCostRmb = b.PurchaseCostRmb.Round(valueobject.MoneyScale)
	b.CustomsCostEgp = b.CustomsCostEgp.Round(valueobject.MoneyScale)
	b.ClearanceCostEgp = b.ClearanceCostEgp.Round(valueobject.MoneyScale)

	rmbToEgp := decimal.Zero
	if in.Details != nil {
		rmbToEgp = in.Details.RmbToEgpRate
	} else if in.FallbackRmbToEgp.IsPositive() {
		rmbToEgp = in.FallbackRmbToEgp
		b.Preliminary = true
	}

	if in.Details != nil {
		b.CommissionRmb = b.PurchaseCostRmb.Mul(in.Details.CommissionRatePct).Div(oneHundred).Round(valueobject.MoneyScale)
		b.ShippingCostUsd = in.Details.ShippingAreaSqm.Mul(in.Details.ShippingCostPerSqmUsd).Round(valueobject.MoneyScale)
		b.ShippingCostRmb = b.ShippingCostUsd.Mul(in.Details.UsdToRmbRate).Round(valueobject.MoneyScale)
	}

	if rmbToEgp.IsPositive() {
		b.PurchaseCostEgp = b.PurchaseCostRmb.Mul(rmbToEgp).Round(valueobject.MoneyScale)
		b.CommissionEgp = b.CommissionRmb.Mul(rmbToEgp).Round(valueobject.MoneyScale)
		b.ShippingCostEgp = b.ShippingCostRmb.Mul(rmbToEgp).Round(valueobject.MoneyScale)
	}

	b.FinalTotalCostEgp = b.PurchaseCostEgp.
		Add(b.CommissionEgp).
		Add(b.ShippingCostEgp).
		Add(b.CustomsCostEgp).
		Add(b.ClearanceCostEgp).
		Round(valueobject.MoneyScale)

	return b
}
