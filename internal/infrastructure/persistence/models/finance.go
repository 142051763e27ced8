package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// ShipmentPaymentModel is the persistence model for a payment record.
// Rows are append-only; amount_egp is frozen at recording time.
type ShipmentPaymentModel struct {
	BaseModel
	ShipmentID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentDate       time.Time             `gorm:"not null;index"`
	Currency          valueobject.Currency  `gorm:"type:varchar(3);not null"`
	AmountOriginal    decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	ExchangeRateToEgp *decimal.Decimal      `gorm:"type:decimal(12,4)"`
	AmountEgp         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	CostComponent     finance.CostComponent `gorm:"type:varchar(20);not null;default:'GENERAL'"`
	Method            finance.PaymentMethod `gorm:"type:varchar(20);not null;default:'CASH'"`
	ReceiverName      string                `gorm:"type:varchar(200)"`
	ReferenceNumber   string                `gorm:"type:varchar(100)"`
	Note              string                `gorm:"type:text"`
	CreatedBy         uuid.UUID             `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (ShipmentPaymentModel) TableName() string {
	return "shipment_payments"
}

// ToDomain converts the persistence model to a domain ShipmentPayment.
func (m *ShipmentPaymentModel) ToDomain() *finance.ShipmentPayment {
	return &finance.ShipmentPayment{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ShipmentID:        m.ShipmentID,
		PaymentDate:       m.PaymentDate,
		Currency:          m.Currency,
		AmountOriginal:    m.AmountOriginal,
		ExchangeRateToEgp: m.ExchangeRateToEgp,
		AmountEgp:         m.AmountEgp,
		CostComponent:     m.CostComponent,
		Method:            m.Method,
		ReceiverName:      m.ReceiverName,
		ReferenceNumber:   m.ReferenceNumber,
		Note:              m.Note,
		CreatedBy:         m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain ShipmentPayment.
func (m *ShipmentPaymentModel) FromDomain(p *finance.ShipmentPayment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ShipmentID = p.ShipmentID
	m.PaymentDate = p.PaymentDate
	m.Currency = p.Currency
	m.AmountOriginal = p.AmountOriginal
	m.ExchangeRateToEgp = p.ExchangeRateToEgp
	m.AmountEgp = p.AmountEgp
	m.CostComponent = p.CostComponent
	m.Method = p.Method
	m.ReceiverName = p.ReceiverName
	m.ReferenceNumber = p.ReferenceNumber
	m.Note = p.Note
	m.CreatedBy = p.CreatedBy
}

// ShipmentPaymentModelFromDomain creates a new persistence model from domain.
func ShipmentPaymentModelFromDomain(p *finance.ShipmentPayment) *ShipmentPaymentModel {
	m := &ShipmentPaymentModel{}
	m.FromDomain(p)
	return m
}

// ExchangeRateModel is the persistence model for a rate time series row.
type ExchangeRateModel struct {
	BaseModel
	RateDate     time.Time            `gorm:"not null;index:idx_rates_pair_date,priority:3"`
	FromCurrency valueobject.Currency `gorm:"type:varchar(3);not null;index:idx_rates_pair_date,priority:1"`
	ToCurrency   valueobject.Currency `gorm:"type:varchar(3);not null;index:idx_rates_pair_date,priority:2"`
	Rate         decimal.Decimal      `gorm:"type:decimal(12,4);not null"`
	Source       finance.RateSource   `gorm:"type:varchar(20);not null;default:'MANUAL'"`
	CreatedBy    uuid.UUID            `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate.
func (m *ExchangeRateModel) ToDomain() *finance.ExchangeRate {
	return &finance.ExchangeRate{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		RateDate:     m.RateDate,
		FromCurrency: m.FromCurrency,
		ToCurrency:   m.ToCurrency,
		Rate:         m.Rate,
		Source:       m.Source,
		CreatedBy:    m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain ExchangeRate.
func (m *ExchangeRateModel) FromDomain(r *finance.ExchangeRate) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.RateDate = r.RateDate
	m.FromCurrency = r.FromCurrency
	m.ToCurrency = r.ToCurrency
	m.Rate = r.Rate
	m.Source = r.Source
	m.CreatedBy = r.CreatedBy
}

// ExchangeRateModelFromDomain creates a new persistence model from domain.
func ExchangeRateModelFromDomain(r *finance.ExchangeRate) *ExchangeRateModel {
	m := &ExchangeRateModel{}
	m.FromDomain(r)
	return m
}
