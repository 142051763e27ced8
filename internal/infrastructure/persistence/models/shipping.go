package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shipping"
)

// ShipmentModel is the persistence model for the Shipment aggregate root.
// Shipping details and the recomputed cost breakdown are flattened into
// columns; HasDetails marks whether the freight step was saved.
type ShipmentModel struct {
	AggregateModel
	Code         string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_shipments_code"`
	Name         string                  `gorm:"type:varchar(200);not null"`
	SupplierID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	SupplierName string                  `gorm:"type:varchar(200);not null"`
	Status       shipping.ShipmentStatus `gorm:"type:varchar(30);not null;index"`
	PurchaseDate time.Time               `gorm:"not null;index"`

	HasDetails            bool            `gorm:"not null;default:false"`
	CommissionRatePct     decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	ShippingAreaSqm       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ShippingCostPerSqmUsd decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UsdToRmbRate          decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	RmbToEgpRate          decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`

	PurchaseCostRmb   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PurchaseCostEgp   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionRmb     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionEgp     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCostUsd   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCostRmb   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCostEgp   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CustomsCostEgp    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ClearanceCostEgp  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	FinalTotalCostEgp decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Preliminary       bool            `gorm:"not null;default:false"`

	TotalPaidEgp    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BalanceEgp      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0;index"`
	LastPaymentDate *time.Time

	Items []ShipmentItemModel `gorm:"foreignKey:ShipmentID;references:ID"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment entity.
func (m *ShipmentModel) ToDomain() *shipping.Shipment {
	s := &shipping.Shipment{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Code:         m.Code,
		Name:         m.Name,
		SupplierID:   m.SupplierID,
		SupplierName: m.SupplierName,
		Status:       m.Status,
		PurchaseDate: m.PurchaseDate,
		Costs: shipping.CostBreakdown{
			PurchaseCostRmb:   m.PurchaseCostRmb,
			PurchaseCostEgp:   m.PurchaseCostEgp,
			CommissionRmb:     m.CommissionRmb,
			CommissionEgp:     m.CommissionEgp,
			ShippingCostUsd:   m.ShippingCostUsd,
			ShippingCostRmb:   m.ShippingCostRmb,
			ShippingCostEgp:   m.ShippingCostEgp,
			CustomsCostEgp:    m.CustomsCostEgp,
			ClearanceCostEgp:  m.ClearanceCostEgp,
			FinalTotalCostEgp: m.FinalTotalCostEgp,
			Preliminary:       m.Preliminary,
		},
		TotalPaidEgp:    m.TotalPaidEgp,
		BalanceEgp:      m.BalanceEgp,
		LastPaymentDate: m.LastPaymentDate,
	}
	if m.HasDetails {
		s.Details = &shipping.ShippingDetails{
			CommissionRatePct:     m.CommissionRatePct,
			ShippingAreaSqm:       m.ShippingAreaSqm,
			ShippingCostPerSqmUsd: m.ShippingCostPerSqmUsd,
			UsdToRmbRate:          m.UsdToRmbRate,
			RmbToEgpRate:          m.RmbToEgpRate,
		}
	}
	s.Items = make([]shipping.ShipmentItem, len(m.Items))
	for i, item := range m.Items {
		s.Items[i] = *item.ToDomain()
	}
	return s
}

// FromDomain populates the persistence model from a domain Shipment entity.
func (m *ShipmentModel) FromDomain(s *shipping.Shipment) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.Code = s.Code
	m.Name = s.Name
	m.SupplierID = s.SupplierID
	m.SupplierName = s.SupplierName
	m.Status = s.Status
	m.PurchaseDate = s.PurchaseDate
	if s.Details != nil {
		m.HasDetails = true
		m.CommissionRatePct = s.Details.CommissionRatePct
		m.ShippingAreaSqm = s.Details.ShippingAreaSqm
		m.ShippingCostPerSqmUsd = s.Details.ShippingCostPerSqmUsd
		m.UsdToRmbRate = s.Details.UsdToRmbRate
		m.RmbToEgpRate = s.Details.RmbToEgpRate
	} else {
		m.HasDetails = false
		m.CommissionRatePct = decimal.Zero
		m.ShippingAreaSqm = decimal.Zero
		m.ShippingCostPerSqmUsd = decimal.Zero
		m.UsdToRmbRate = decimal.Zero
		m.RmbToEgpRate = decimal.Zero
	}
	m.PurchaseCostRmb = s.Costs.PurchaseCostRmb
	m.PurchaseCostEgp = s.Costs.PurchaseCostEgp
	m.CommissionRmb = s.Costs.CommissionRmb
	m.CommissionEgp = s.Costs.CommissionEgp
	m.ShippingCostUsd = s.Costs.ShippingCostUsd
	m.ShippingCostRmb = s.Costs.ShippingCostRmb
	m.ShippingCostEgp = s.Costs.ShippingCostEgp
	m.CustomsCostEgp = s.Costs.CustomsCostEgp
	m.ClearanceCostEgp = s.Costs.ClearanceCostEgp
	m.FinalTotalCostEgp = s.Costs.FinalTotalCostEgp
	m.Preliminary = s.Costs.Preliminary
	m.TotalPaidEgp = s.TotalPaidEgp
	m.BalanceEgp = s.BalanceEgp
	m.LastPaymentDate = s.LastPaymentDate
	m.Items = make([]ShipmentItemModel, len(s.Items))
	for i := range s.Items {
		m.Items[i] = *ShipmentItemModelFromDomain(&s.Items[i])
	}
}

// ShipmentModelFromDomain creates a new persistence model from a domain Shipment.
func ShipmentModelFromDomain(s *shipping.Shipment) *ShipmentModel {
	m := &ShipmentModel{}
	m.FromDomain(s)
	return m
}

// ShipmentItemModel is the persistence model for a shipment line item.
type ShipmentItemModel struct {
	BaseModel
	ShipmentID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description           string          `gorm:"type:varchar(500);not null"`
	Cartons               int64           `gorm:"not null"`
	PiecesPerCarton       int64           `gorm:"not null"`
	UnitPriceRmb          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CustomsPerCartonEgp   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ClearancePerCartonEgp decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ShipmentItemModel) TableName() string {
	return "shipment_items"
}

// ToDomain converts the persistence model to a domain ShipmentItem.
func (m *ShipmentItemModel) ToDomain() *shipping.ShipmentItem {
	return &shipping.ShipmentItem{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ShipmentID:            m.ShipmentID,
		Description:           m.Description,
		Cartons:               m.Cartons,
		PiecesPerCarton:       m.PiecesPerCarton,
		UnitPriceRmb:          m.UnitPriceRmb,
		CustomsPerCartonEgp:   m.CustomsPerCartonEgp,
		ClearancePerCartonEgp: m.ClearancePerCartonEgp,
	}
}

// FromDomain populates the persistence model from a domain ShipmentItem.
func (m *ShipmentItemModel) FromDomain(item *shipping.ShipmentItem) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.ShipmentID = item.ShipmentID
	m.Description = item.Description
	m.Cartons = item.Cartons
	m.PiecesPerCarton = item.PiecesPerCarton
	m.UnitPriceRmb = item.UnitPriceRmb
	m.CustomsPerCartonEgp = item.CustomsPerCartonEgp
	m.ClearancePerCartonEgp = item.ClearancePerCartonEgp
}

// ShipmentItemModelFromDomain creates a new persistence model from domain.
func ShipmentItemModelFromDomain(item *shipping.ShipmentItem) *ShipmentItemModel {
	m := &ShipmentItemModel{}
	m.FromDomain(item)
	return m
}
