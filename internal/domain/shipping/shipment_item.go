package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// ShipmentItem is a purchased line within a shipment.
// Quantities are carton-based; pieces are derived.
type ShipmentItem struct {
	shared.BaseEntity
	ShipmentID            uuid.UUID
	Description           string
	Cartons               int64
	PiecesPerCarton       int64
	UnitPriceRmb          decimal.Decimal
	CustomsPerCartonEgp   decimal.Decimal
	ClearancePerCartonEgp decimal.Decimal
}

// NewShipmentItem creates a validated shipment item
func NewShipmentItem(description string, cartons, piecesPerCarton int64, unitPriceRmb decimal.Decimal) (*ShipmentItem, error) {
	if description == "" {
		return nil, shared.NewDomainError("VALIDATION", "item description is required")
	}
	if cartons <= 0 {
		return nil, shared.NewDomainError("VALIDATION", "cartons must be positive")
	}
	if piecesPerCarton <= 0 {
		return nil, shared.NewDomainError("VALIDATION", "pieces per carton must be positive")
	}
	if unitPriceRmb.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "unit price cannot be negative")
	}
	return &ShipmentItem{
		BaseEntity:      shared.NewBaseEntity(),
		Description:     description,
		Cartons:         cartons,
		PiecesPerCarton: piecesPerCarton,
		UnitPriceRmb:    unitPriceRmb,
	}, nil
}

// TotalPieces returns cartons x pieces per carton
func (i *ShipmentItem) TotalPieces() int64 {
	return i.Cartons * i.PiecesPerCarton
}

// LineTotalRmb returns the purchase value of the line in RMB
func (i *ShipmentItem) LineTotalRmb() decimal.Decimal {
	return decimal.NewFromInt(i.TotalPieces()).Mul(i.UnitPriceRmb)
}

// CustomsTotalEgp returns the customs cost of the line in EGP
func (i *ShipmentItem) CustomsTotalEgp() decimal.Decimal {
	return decimal.NewFromInt(i.Cartons).Mul(i.CustomsPerCartonEgp)
}

// ClearanceTotalEgp returns the clearance cost of the line in EGP
func (i *ShipmentItem) ClearanceTotalEgp() decimal.Decimal {
	return decimal.NewFromInt(i.Cartons).Mul(i.ClearancePerCartonEgp)
}

// SetClearanceRates records the per-carton customs and clearance rates
func (i *ShipmentItem) SetClearanceRates(customsPerCarton, clearancePerCarton decimal.Decimal) error {
	if customsPerCarton.IsNegative() || clearancePerCarton.IsNegative() {
		return shared.NewDomainError("VALIDATION", "per-carton rates cannot be negative")
	}
	i.CustomsPerCartonEgp = customsPerCarton
	i.ClearancePerCartonEgp = clearancePerCarton
	i.Touch()
	return nil
}
