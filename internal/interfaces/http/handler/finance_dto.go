package handler

import (
	"time"

	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// PaymentResponse is one immutable payment record
type PaymentResponse struct {
	ID                string    `json:"id"`
	ShipmentID        string    `json:"shipment_id"`
	PaymentDate       time.Time `json:"payment_date"`
	Currency          string    `json:"currency"`
	AmountOriginal    string    `json:"amount_original"`
	ExchangeRateToEgp *string   `json:"exchange_rate_to_egp,omitempty"`
	AmountEgp         string    `json:"amount_egp"`
	CostComponent     string    `json:"cost_component"`
	Method            string    `json:"method"`
	ReceiverName      string    `json:"receiver_name,omitempty"`
	ReferenceNumber   string    `json:"reference_number,omitempty"`
	Note              string    `json:"note,omitempty"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// RecordPaymentResponse reports the settlement state after a payment
type RecordPaymentResponse struct {
	Payment         PaymentResponse `json:"payment"`
	TotalPaidEgp    string          `json:"total_paid_egp"`
	BalanceEgp      string          `json:"balance_egp"`
	RemainingBefore string          `json:"remaining_before_egp"`
	PaymentState    string          `json:"payment_state"`
}

// ExchangeRateResponse is one row of the append-only rate series
type ExchangeRateResponse struct {
	ID           string    `json:"id"`
	RateDate     time.Time `json:"rate_date"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         string    `json:"rate"`
	Source       string    `json:"source"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func toPaymentResponse(p *finance.ShipmentPayment) PaymentResponse {
	var rate *string
	if p.ExchangeRateToEgp != nil {
		s := p.ExchangeRateToEgp.StringFixed(valueobject.RateScale)
		rate = &s
	}
	return PaymentResponse{
		ID:                p.ID.String(),
		ShipmentID:        p.ShipmentID.String(),
		PaymentDate:       p.PaymentDate,
		Currency:          string(p.Currency),
		AmountOriginal:    p.AmountOriginal.StringFixed(valueobject.MoneyScale),
		ExchangeRateToEgp: rate,
		AmountEgp:         p.AmountEgp.StringFixed(valueobject.MoneyScale),
		CostComponent:     string(p.CostComponent),
		Method:            string(p.Method),
		ReceiverName:      p.ReceiverName,
		ReferenceNumber:   p.ReferenceNumber,
		Note:              p.Note,
		CreatedBy:         p.CreatedBy.String(),
		CreatedAt:         p.CreatedAt,
	}
}

func toPaymentListResponse(payments []finance.ShipmentPayment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	return out
}

func toExchangeRateResponse(r *finance.ExchangeRate) ExchangeRateResponse {
	return ExchangeRateResponse{
		ID:           r.ID.String(),
		RateDate:     r.RateDate,
		FromCurrency: string(r.FromCurrency),
		ToCurrency:   string(r.ToCurrency),
		Rate:         r.Rate.StringFixed(valueobject.RateScale),
		Source:       string(r.Source),
		CreatedBy:    r.CreatedBy.String(),
		CreatedAt:    r.CreatedAt,
	}
}

func toExchangeRateListResponse(rates []finance.ExchangeRate) []ExchangeRateResponse {
	out := make([]ExchangeRateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, toExchangeRateResponse(&rates[i]))
	}
	return out
}
