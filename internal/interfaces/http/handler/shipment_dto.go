package handler

import (
	"time"

	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/domain/shipping"
)

// ShipmentItemResponse is one purchase line in a shipment response
type ShipmentItemResponse struct {
	ID                    string `json:"id"`
	Description           string `json:"description"`
	Cartons               int64  `json:"cartons"`
	PiecesPerCarton       int64  `json:"pieces_per_carton"`
	TotalPieces           int64  `json:"total_pieces"`
	UnitPriceRmb          string `json:"unit_price_rmb"`
	LineTotalRmb          string `json:"line_total_rmb"`
	CustomsPerCartonEgp   string `json:"customs_per_carton_egp"`
	ClearancePerCartonEgp string `json:"clearance_per_carton_egp"`
}

// ShippingDetailsResponse is the freight step with its locked rate snapshot
type ShippingDetailsResponse struct {
	CommissionRatePct     string `json:"commission_rate_pct"`
	ShippingAreaSqm       string `json:"shipping_area_sqm"`
	ShippingCostPerSqmUsd string `json:"shipping_cost_per_sqm_usd"`
	UsdToRmbRate          string `json:"usd_to_rmb_rate"`
	RmbToEgpRate          string `json:"rmb_to_egp_rate"`
}

// CostBreakdownResponse is the recomputed cost picture
type CostBreakdownResponse struct {
	PurchaseCostRmb   string `json:"purchase_cost_rmb"`
	PurchaseCostEgp   string `json:"purchase_cost_egp"`
	CommissionRmb     string `json:"commission_rmb"`
	CommissionEgp     string `json:"commission_egp"`
	ShippingCostUsd   string `json:"shipping_cost_usd"`
	ShippingCostRmb   string `json:"shipping_cost_rmb"`
	ShippingCostEgp   string `json:"shipping_cost_egp"`
	CustomsCostEgp    string `json:"customs_cost_egp"`
	ClearanceCostEgp  string `json:"clearance_cost_egp"`
	FinalTotalCostEgp string `json:"final_total_cost_egp"`
	Preliminary       bool   `json:"preliminary"`
}

// ShipmentResponse is the full shipment representation
type ShipmentResponse struct {
	ID              string                   `json:"id"`
	Code            string                   `json:"code"`
	Name            string                   `json:"name"`
	SupplierID      string                   `json:"supplier_id"`
	SupplierName    string                   `json:"supplier_name"`
	Status          string                   `json:"status"`
	PaymentState    string                   `json:"payment_state"`
	PurchaseDate    time.Time                `json:"purchase_date"`
	Items           []ShipmentItemResponse   `json:"items"`
	Details         *ShippingDetailsResponse `json:"details,omitempty"`
	Costs           CostBreakdownResponse    `json:"costs"`
	TotalPaidEgp    string                   `json:"total_paid_egp"`
	BalanceEgp      string                   `json:"balance_egp"`
	LastPaymentDate *time.Time               `json:"last_payment_date,omitempty"`
	Version         int                      `json:"version"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// ShipmentListResponse is the trimmed row for list views
type ShipmentListResponse struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	SupplierName      string    `json:"supplier_name"`
	Status            string    `json:"status"`
	PaymentState      string    `json:"payment_state"`
	PurchaseDate      time.Time `json:"purchase_date"`
	FinalTotalCostEgp string    `json:"final_total_cost_egp"`
	TotalPaidEgp      string    `json:"total_paid_egp"`
	BalanceEgp        string    `json:"balance_egp"`
	Preliminary       bool      `json:"preliminary"`
}

func toShipmentResponse(s *shipping.Shipment) ShipmentResponse {
	items := make([]ShipmentItemResponse, 0, len(s.Items))
	for i := range s.Items {
		item := &s.Items[i]
		items = append(items, ShipmentItemResponse{
			ID:                    item.ID.String(),
			Description:           item.Description,
			Cartons:               item.Cartons,
			PiecesPerCarton:       item.PiecesPerCarton,
			TotalPieces:           item.TotalPieces(),
			UnitPriceRmb:          item.UnitPriceRmb.StringFixed(valueobject.MoneyScale),
			LineTotalRmb:          item.LineTotalRmb().StringFixed(valueobject.MoneyScale),
			CustomsPerCartonEgp:   item.CustomsPerCartonEgp.StringFixed(valueobject.MoneyScale),
			ClearancePerCartonEgp: item.ClearancePerCartonEgp.StringFixed(valueobject.MoneyScale),
		})
	}

	var details *ShippingDetailsResponse
	if s.Details != nil {
		details = &ShippingDetailsResponse{
			CommissionRatePct:     s.Details.CommissionRatePct.String(),
			ShippingAreaSqm:       s.Details.ShippingAreaSqm.String(),
			ShippingCostPerSqmUsd: s.Details.ShippingCostPerSqmUsd.StringFixed(valueobject.MoneyScale),
			UsdToRmbRate:          s.Details.UsdToRmbRate.StringFixed(valueobject.RateScale),
			RmbToEgpRate:          s.Details.RmbToEgpRate.StringFixed(valueobject.RateScale),
		}
	}

	return ShipmentResponse{
		ID:              s.ID.String(),
		Code:            s.Code,
		Name:            s.Name,
		SupplierID:      s.SupplierID.String(),
		SupplierName:    s.SupplierName,
		Status:          string(s.Status),
		PaymentState:    string(s.PaymentState()),
		PurchaseDate:    s.PurchaseDate,
		Items:           items,
		Details:         details,
		Costs:           toCostBreakdownResponse(s.Costs),
		TotalPaidEgp:    s.TotalPaidEgp.StringFixed(valueobject.MoneyScale),
		BalanceEgp:      s.BalanceEgp.StringFixed(valueobject.MoneyScale),
		LastPaymentDate: s.LastPaymentDate,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toCostBreakdownResponse(b shipping.CostBreakdown) CostBreakdownResponse {
	return CostBreakdownResponse{
		PurchaseCostRmb:   b.PurchaseCostRmb.StringFixed(valueobject.MoneyScale),
		PurchaseCostEgp:   b.PurchaseCostEgp.StringFixed(valueobject.MoneyScale),
		CommissionRmb:     b.CommissionRmb.StringFixed(valueobject.MoneyScale),
		CommissionEgp:     b.CommissionEgp.StringFixed(valueobject.MoneyScale),
		ShippingCostUsd:   b.ShippingCostUsd.StringFixed(valueobject.MoneyScale),
		ShippingCostRmb:   b.ShippingCostRmb.StringFixed(valueobject.MoneyScale),
		ShippingCostEgp:   b.ShippingCostEgp.StringFixed(valueobject.MoneyScale),
		CustomsCostEgp:    b.CustomsCostEgp.StringFixed(valueobject.MoneyScale),
		ClearanceCostEgp:  b.ClearanceCostEgp.StringFixed(valueobject.MoneyScale),
		FinalTotalCostEgp: b.FinalTotalCostEgp.StringFixed(valueobject.MoneyScale),
		Preliminary:       b.Preliminary,
	}
}

func toShipmentListResponse(shipments []shipping.Shipment) []ShipmentListResponse {
	out := make([]ShipmentListResponse, 0, len(shipments))
	for i := range shipments {
		s := &shipments[i]
		out = append(out, ShipmentListResponse{
			ID:                s.ID.String(),
			Code:              s.Code,
			Name:              s.Name,
			SupplierName:      s.SupplierName,
			Status:            string(s.Status),
			PaymentState:      string(s.PaymentState()),
			PurchaseDate:      s.PurchaseDate,
			FinalTotalCostEgp: s.Costs.FinalTotalCostEgp.StringFixed(valueobject.MoneyScale),
			TotalPaidEgp:      s.TotalPaidEgp.StringFixed(valueobject.MoneyScale),
			BalanceEgp:        s.BalanceEgp.StringFixed(valueobject.MoneyScale),
			Preliminary:       s.Costs.Preliminary,
		})
	}
	return out
}
