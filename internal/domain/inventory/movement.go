package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// MovementType classifies inventory movements. Receipt is the only type
// written today; the ledger is append-only either way.
type MovementType string

const (
	MovementReceipt    MovementType = "RECEIPT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// IsValid checks if the movement type is a known value
func (t MovementType) IsValid() bool {
	switch t {
	case MovementReceipt, MovementAdjustment:
		return true
	}
	return false
}

// Movement is one append-only inventory ledger row, written when a
// shipment is received: one row per shipment item, valued at the landed
// unit cost in EGP.
type Movement struct {
	shared.BaseEntity
	ShipmentID   uuid.UUID
	ItemID       uuid.UUID
	Description  string
	Quantity     int64
	UnitCostEgp  decimal.Decimal
	MovementType MovementType
}

// NewReceiptMovement records the arrival of one shipment item
func NewReceiptMovement(shipmentID, itemID uuid.UUID, description string, quantity int64, unitCostEgp decimal.Decimal) (*Movement, error) {
	if shipmentID == uuid.Nil || itemID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "shipment and item references are required")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("VALIDATION", "movement quantity must be positive")
	}
	if unitCostEgp.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "unit cost cannot be negative")
	}
	return &Movement{
		BaseEntity:   shared.NewBaseEntity(),
		ShipmentID:   shipmentID,
		ItemID:       itemID,
		Description:  description,
		Quantity:     quantity,
		UnitCostEgp:  unitCostEgp,
		MovementType: MovementReceipt,
	}, nil
}

// MovementRepository defines persistence for the inventory ledger.
// Rows are append-only.
type MovementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)
	FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]Movement, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Movement, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CreateBatch(ctx context.Context, movements []Movement) error
}
