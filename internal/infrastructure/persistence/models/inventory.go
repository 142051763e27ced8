package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/inventory"
	"github.com/cargoledger/backend/internal/domain/shared"
)

// MovementModel is the persistence model for an inventory ledger row.
// Rows are append-only.
type MovementModel struct {
	BaseModel
	ShipmentID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	ItemID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	Description  string                 `gorm:"type:varchar(500);not null"`
	Quantity     int64                  `gorm:"not null"`
	UnitCostEgp  decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	MovementType inventory.MovementType `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "inventory_movements"
}

// ToDomain converts the persistence model to a domain Movement.
func (m *MovementModel) ToDomain() *inventory.Movement {
	return &inventory.Movement{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ShipmentID:   m.ShipmentID,
		ItemID:       m.ItemID,
		Description:  m.Description,
		Quantity:     m.Quantity,
		UnitCostEgp:  m.UnitCostEgp,
		MovementType: m.MovementType,
	}
}

// FromDomain populates the persistence model from a domain Movement.
func (m *MovementModel) FromDomain(mv *inventory.Movement) {
	m.FromDomainBaseEntity(mv.BaseEntity)
	m.ShipmentID = mv.ShipmentID
	m.ItemID = mv.ItemID
	m.Description = mv.Description
	m.Quantity = mv.Quantity
	m.UnitCostEgp = mv.UnitCostEgp
	m.MovementType = mv.MovementType
}

// MovementModelFromDomain creates a new persistence model from domain.
func MovementModelFromDomain(mv *inventory.Movement) *MovementModel {
	m := &MovementModel{}
	m.FromDomain(mv)
	return m
}
