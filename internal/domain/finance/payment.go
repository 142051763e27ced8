package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// CostComponent tags which cost bucket a payment was intended for.
// Informational only; settlement math never reads it.
type CostComponent string

const (
	ComponentPurchase   CostComponent = "PURCHASE"
	ComponentCommission CostComponent = "COMMISSION"
	ComponentShipping   CostComponent = "SHIPPING"
	ComponentCustoms    CostComponent = "CUSTOMS"
	ComponentClearance  CostComponent = "CLEARANCE"
	ComponentGeneral    CostComponent = "GENERAL"
)

// IsValid checks if the cost component is a known value
func (c CostComponent) IsValid() bool {
	switch c {
	case ComponentPurchase, ComponentCommission, ComponentShipping,
		ComponentCustoms, ComponentClearance, ComponentGeneral:
		return true
	}
	return false
}

// PaymentMethod is how the money moved
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodInstapay     PaymentMethod = "INSTAPAY"
	MethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodInstapay, MethodOther:
		return true
	}
	return false
}

// ShipmentPayment is an immutable payment record against a shipment.
// AmountEgp is persisted at recording time and never recomputed; rate
// changes after the fact do not touch history. Corrections are offsetting
// records, never edits.
type ShipmentPayment struct {
	shared.BaseEntity
	ShipmentID        uuid.UUID
	PaymentDate       time.Time
	Currency          valueobject.Currency
	AmountOriginal    decimal.Decimal
	ExchangeRateToEgp *decimal.Decimal
	AmountEgp         decimal.Decimal
	CostComponent     CostComponent
	Method            PaymentMethod
	ReceiverName      string
	ReferenceNumber   string
	Note              string
	CreatedBy         uuid.UUID
}

// NewPaymentInput carries the raw payment request into the normalizer
type NewPaymentInput struct {
	ShipmentID      uuid.UUID
	PaymentDate     time.Time
	Currency        valueobject.Currency
	AmountOriginal  decimal.Decimal
	ExchangeRate    *decimal.Decimal
	CostComponent   CostComponent
	Method          PaymentMethod
	ReceiverName    string
	ReferenceNumber string
	Note            string
	CreatedBy       uuid.UUID
}

// NewShipmentPayment validates the input, normalizes the amount to EGP and
// returns the immutable payment record
func NewShipmentPayment(in NewPaymentInput) (*ShipmentPayment, error) {
	if in.ShipmentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "shipment id is required")
	}
	if in.PaymentDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION", "payment date is required")
	}
	if in.CostComponent == "" {
		in.CostComponent = ComponentGeneral
	}
	if !in.CostComponent.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unknown cost component")
	}
	if in.Method == "" {
		in.Method = MethodCash
	}
	if !in.Method.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unknown payment method")
	}

	norm, err := NormalizeToEgp(in.Currency, in.AmountOriginal, in.ExchangeRate)
	if err != nil {
		return nil, err
	}

	return &ShipmentPayment{
		BaseEntity:        shared.NewBaseEntity(),
		ShipmentID:        in.ShipmentID,
		PaymentDate:       in.PaymentDate,
		Currency:          in.Currency,
		AmountOriginal:    norm.AmountOriginal,
		ExchangeRateToEgp: norm.Rate,
		AmountEgp:         norm.AmountEgp,
		CostComponent:     in.CostComponent,
		Method:            in.Method,
		ReceiverName:      in.ReceiverName,
		ReferenceNumber:   in.ReferenceNumber,
		Note:              in.Note,
		CreatedBy:         in.CreatedBy,
	}, nil
}
