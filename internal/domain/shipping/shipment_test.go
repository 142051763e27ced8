package shipping

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildShipment(t *testing.T) *Shipment {
	t.Helper()
	item := buildItem(t, 100, 20, "10")
	s, err := NewShipment("SH-2024-001", "Spring order", uuid.New(), "Guangzhou Trading Co", time.Now(), []ShipmentItem{item})
	require.NoError(t, err)
	return s
}

func TestNewShipment(t *testing.T) {
	s := buildShipment(t)
	assert.Equal(t, StatusNew, s.Status)
	assert.Equal(t, "20000.00", s.Costs.PurchaseCostRmb.StringFixed(2))
	assert.True(t, s.TotalPaidEgp.IsZero())
	assert.Equal(t, PaymentStateUnpaid, s.PaymentState())
	assert.Len(t, s.GetDomainEvents(), 1)
	for _, item := range s.Items {
		assert.Equal(t, s.ID, item.ShipmentID)
	}
}

func TestNewShipment_Validation(t *testing.T) {
	item := buildItem(t, 1, 1, "1")

	_, err := NewShipment("", "name", uuid.New(), "sup", time.Now(), []ShipmentItem{item})
	assert.Error(t, err)

	_, err = NewShipment("CODE", "name", uuid.Nil, "sup", time.Now(), []ShipmentItem{item})
	assert.Error(t, err)

	_, err = NewShipment("CODE", "name", uuid.New(), "sup", time.Now(), nil)
	assert.Error(t, err)
}

func TestShipment_Lifecycle(t *testing.T) {
	s := buildShipment(t)

	require.NoError(t, s.ConfirmPurchase())
	assert.Equal(t, StatusAwaitingShipping, s.Status)

	details := buildDetails(t, "5", "50", "30", "7.2", "6.9")
	require.NoError(t, s.SaveShippingDetails(details))
	assert.Equal(t, StatusReadyForReceipt, s.Status)

	s.Recompute(decimal.Zero)
	assert.Equal(t, "138000.00", s.Costs.PurchaseCostEgp.StringFixed(2))

	require.NoError(t, s.MarkReceived())
	assert.Equal(t, StatusReceived, s.Status)

	// items and shipping details frozen after receipt
	assert.Error(t, s.ReplaceItems([]ShipmentItem{buildItem(t, 1, 1, "1")}))
	assert.Error(t, s.SaveShippingDetails(details))

	require.NoError(t, s.Archive())
	assert.Equal(t, StatusArchived, s.Status)
	assert.Error(t, s.MarkReceived())
}

func TestShipment_ShippingDetailsSkipsConfirm(t *testing.T) {
	s := buildShipment(t)
	require.NoError(t, s.SaveShippingDetails(buildDetails(t, "0", "10", "25", "7.2", "6.9")))
	assert.Equal(t, StatusReadyForReceipt, s.Status)
}

func TestShipment_MarkReceivedRequiresShippingDetails(t *testing.T) {
	s := buildShipment(t)
	assert.Error(t, s.MarkReceived())

	require.NoError(t, s.ConfirmPurchase())
	assert.Error(t, s.MarkReceived())
}

func TestShipment_ApplyClearanceRates(t *testing.T) {
	s := buildShipment(t)
	rates := []ClearanceRate{{
		ItemID:                s.Items[0].ID,
		CustomsPerCartonEgp:   decimal.RequireFromString("50"),
		ClearancePerCartonEgp: decimal.RequireFromString("20"),
	}}
	require.NoError(t, s.ApplyClearanceRates(rates))
	s.Recompute(decimal.Zero)
	assert.Equal(t, "5000.00", s.Costs.CustomsCostEgp.StringFixed(2))
	assert.Equal(t, "2000.00", s.Costs.ClearanceCostEgp.StringFixed(2))

	err := s.ApplyClearanceRates([]ClearanceRate{{ItemID: uuid.New()}})
	assert.Error(t, err)
}

func TestShipment_ApplySettlement(t *testing.T) {
	s := buildShipment(t)
	require.NoError(t, s.SaveShippingDetails(buildDetails(t, "0", "0", "0", "7.2", "6.9")))
	s.Recompute(decimal.Zero)
	require.Equal(t, "138000.00", s.Costs.FinalTotalCostEgp.StringFixed(2))

	paidAt := time.Now()
	s.ApplySettlement(decimal.RequireFromString("38000"), &paidAt)
	assert.Equal(t, "100000.00", s.BalanceEgp.StringFixed(2))
	assert.Equal(t, PaymentStatePartiallyPaid, s.PaymentState())
	assert.False(t, s.CanDelete())

	s.ApplySettlement(decimal.RequireFromString("138000"), &paidAt)
	assert.True(t, s.BalanceEgp.IsZero())
	assert.Equal(t, PaymentStateSettled, s.PaymentState())
}

func TestShipment_BalanceNeverNegative(t *testing.T) {
	s := buildShipment(t)
	require.NoError(t, s.SaveShippingDetails(buildDetails(t, "0", "0", "0", "7.2", "6.9")))
	s.Recompute(decimal.Zero)

	paidAt := time.Now()
	s.ApplySettlement(decimal.RequireFromString("150000"), &paidAt)
	assert.True(t, s.BalanceEgp.IsZero())
	assert.True(t, s.RemainingBalance().IsZero())
}

func TestShipment_ReceiptUnitCostEgp(t *testing.T) {
	s := buildShipment(t)

	// no locked rate yet
	assert.True(t, s.ReceiptUnitCostEgp(&s.Items[0]).IsZero())

	require.NoError(t, s.SaveShippingDetails(buildDetails(t, "0", "0", "0", "7.2", "6.9")))
	// 2000 pieces, line 20000 RMB x 6.9 = 138000 EGP, 69.00 per piece
	assert.Equal(t, "69.00", s.ReceiptUnitCostEgp(&s.Items[0]).StringFixed(2))
}

func TestShipmentStatus_Transitions(t *testing.T) {
	assert.True(t, StatusNew.CanTransitionTo(StatusAwaitingShipping))
	assert.True(t, StatusNew.CanTransitionTo(StatusReadyForReceipt))
	assert.False(t, StatusNew.CanTransitionTo(StatusReceived))
	assert.True(t, StatusReadyForReceipt.CanTransitionTo(StatusReceived))
	assert.False(t, StatusReceived.CanTransitionTo(StatusNew))
	assert.True(t, StatusArchived.IsTerminal())
	assert.False(t, ShipmentStatus("BOGUS").IsValid())
}
