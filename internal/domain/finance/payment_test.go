package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

func validPaymentInput() NewPaymentInput {
	return NewPaymentInput{
		ShipmentID:     uuid.New(),
		PaymentDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Currency:       valueobject.EGP,
		AmountOriginal: decimal.RequireFromString("5000"),
		CostComponent:  ComponentPurchase,
		Method:         MethodBankTransfer,
		ReceiverName:   "Ahmed Hassan",
		CreatedBy:      uuid.New(),
	}
}

func TestNewShipmentPayment_Egp(t *testing.T) {
	p, err := NewShipmentPayment(validPaymentInput())
	require.NoError(t, err)
	assert.Equal(t, "5000.00", p.AmountEgp.StringFixed(2))
	assert.Nil(t, p.ExchangeRateToEgp)
	assert.Equal(t, ComponentPurchase, p.CostComponent)
	assert.Equal(t, MethodBankTransfer, p.Method)
}

func TestNewShipmentPayment_RmbConversion(t *testing.T) {
	in := validPaymentInput()
	in.Currency = valueobject.RMB
	in.AmountOriginal = decimal.RequireFromString("2000")
	in.ExchangeRate = ratePtr("6.9")

	p, err := NewShipmentPayment(in)
	require.NoError(t, err)
	assert.Equal(t, "2000.00", p.AmountOriginal.StringFixed(2))
	assert.Equal(t, "13800.00", p.AmountEgp.StringFixed(2))
	require.NotNil(t, p.ExchangeRateToEgp)
	assert.Equal(t, "6.9000", p.ExchangeRateToEgp.StringFixed(4))
}

func TestNewShipmentPayment_Defaults(t *testing.T) {
	in := validPaymentInput()
	in.CostComponent = ""
	in.Method = ""

	p, err := NewShipmentPayment(in)
	require.NoError(t, err)
	assert.Equal(t, ComponentGeneral, p.CostComponent)
	assert.Equal(t, MethodCash, p.Method)
}

func TestNewShipmentPayment_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewPaymentInput)
	}{
		{"missing shipment", func(in *NewPaymentInput) { in.ShipmentID = uuid.Nil }},
		{"missing date", func(in *NewPaymentInput) { in.PaymentDate = time.Time{} }},
		{"bad component", func(in *NewPaymentInput) { in.CostComponent = "RENT" }},
		{"bad method", func(in *NewPaymentInput) { in.Method = "CHEQUE" }},
		{"USD payment", func(in *NewPaymentInput) { in.Currency = valueobject.USD }},
		{"RMB without rate", func(in *NewPaymentInput) { in.Currency = valueobject.RMB }},
		{"zero amount", func(in *NewPaymentInput) { in.AmountOriginal = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validPaymentInput()
			tt.mutate(&in)
			_, err := NewShipmentPayment(in)
			assert.Error(t, err)
		})
	}
}

func TestNewExchangeRate(t *testing.T) {
	rate, err := NewExchangeRate(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		valueobject.RMB, valueobject.EGP,
		decimal.RequireFromString("6.91238"),
		RateSourceBank, uuid.New(),
	)
	require.NoError(t, err)
	assert.Equal(t, "6.9124", rate.Rate.StringFixed(4))
	assert.Equal(t, RateSourceBank, rate.Source)

	_, err = NewExchangeRate(time.Time{}, valueobject.RMB, valueobject.EGP, decimal.NewFromInt(1), RateSourceManual, uuid.Nil)
	assert.Error(t, err)

	_, err = NewExchangeRate(time.Now(), valueobject.EGP, valueobject.EGP, decimal.NewFromInt(1), RateSourceManual, uuid.Nil)
	assert.Error(t, err)

	_, err = NewExchangeRate(time.Now(), valueobject.RMB, valueobject.EGP, decimal.Zero, RateSourceManual, uuid.Nil)
	assert.Error(t, err)
}
