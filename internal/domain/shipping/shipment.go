package shipping

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
)

// Shipment is the aggregate root of the shipping context. It owns the
// purchased items, the freight details with their rate snapshots, and the
// derived cost and payment figures. Derived figures are always recomputed
// from source data, never adjusted incrementally.
type Shipment struct {
	shared.BaseAggregateRoot
	Code         string
	Name         string
	SupplierID   uuid.UUID
	SupplierName string
	Status       ShipmentStatus
	PurchaseDate time.Time

	Items   []ShipmentItem
	Details *ShippingDetails

	Costs CostBreakdown

	TotalPaidEgp    decimal.Decimal
	BalanceEgp      decimal.Decimal
	LastPaymentDate *time.Time
}

// NewShipment creates a shipment in the NEW status with its purchase items
func NewShipment(code, name string, supplierID uuid.UUID, supplierName string, purchaseDate time.Time, items []ShipmentItem) (*Shipment, error) {
	if code == "" {
		return nil, shared.NewDomainError("VALIDATION", "shipment code is required")
	}
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION", "shipment name is required")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "supplier is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("VALIDATION", "shipment needs at least one item")
	}

	s := &Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		SupplierID:        supplierID,
		SupplierName:      supplierName,
		Status:            StatusNew,
		PurchaseDate:      purchaseDate,
	}
	for i := range items {
		items[i].ShipmentID = s.ID
	}
	s.Items = items
	s.Recompute(decimal.Zero)
	s.AddDomainEvent(newShipmentCreatedEvent(s))
	return s, nil
}

// ReplaceItems swaps the item list. Allowed until goods are received.
func (s *Shipment) ReplaceItems(items []ShipmentItem) error {
	if s.Status == StatusReceived || s.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("cannot edit items of a %s shipment", s.Status))
	}
	if len(items) == 0 {
		return shared.NewDomainError("VALIDATION", "shipment needs at least one item")
	}
	for i := range items {
		items[i].ShipmentID = s.ID
	}
	s.Items = items
	s.Touch()
	return nil
}

// ConfirmPurchase marks the purchase step complete
func (s *Shipment) ConfirmPurchase() error {
	return s.transitionTo(StatusAwaitingShipping)
}

// SaveShippingDetails records the freight step. The first save locks the
// rate snapshots and advances the shipment to READY_FOR_RECEIPT; re-saving
// before receipt replaces the snapshot.
func (s *Shipment) SaveShippingDetails(d *ShippingDetails) error {
	if d == nil {
		return shared.NewDomainError("VALIDATION", "shipping details are required")
	}
	if s.Status == StatusReceived || s.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("cannot edit shipping details of a %s shipment", s.Status))
	}
	s.Details = d
	if s.Status == StatusNew || s.Status == StatusAwaitingShipping {
		if err := s.transitionTo(StatusReadyForReceipt); err != nil {
			return err
		}
	}
	s.Touch()
	return nil
}

// ClearanceRate carries the step-3 per-carton rates for one item
type ClearanceRate struct {
	ItemID                uuid.UUID
	CustomsPerCartonEgp   decimal.Decimal
	ClearancePerCartonEgp decimal.Decimal
}

// ApplyClearanceRates records customs and clearance rates per item
func (s *Shipment) ApplyClearanceRates(rates []ClearanceRate) error {
	if s.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "cannot edit an archived shipment")
	}
	byID := make(map[uuid.UUID]*ShipmentItem, len(s.Items))
	for i := range s.Items {
		byID[s.Items[i].ID] = &s.Items[i]
	}
	for _, r := range rates {
		item, ok := byID[r.ItemID]
		if !ok {
			return shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("item %s does not belong to this shipment", r.ItemID))
		}
		if err := item.SetClearanceRates(r.CustomsPerCartonEgp, r.ClearancePerCartonEgp); err != nil {
			return err
		}
	}
	s.Touch()
	return nil
}

// MarkReceived advances the shipment to RECEIVED. The caller writes one
// inventory movement per item.
func (s *Shipment) MarkReceived() error {
	if err := s.transitionTo(StatusReceived); err != nil {
		return err
	}
	s.AddDomainEvent(newShipmentReceivedEvent(s))
	return nil
}

// Archive closes out a received shipment
func (s *Shipment) Archive() error {
	return s.transitionTo(StatusArchived)
}

func (s *Shipment) transitionTo(target ShipmentStatus) error {
	if !s.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("cannot move shipment from %s to %s", s.Status, target))
	}
	from := s.Status
	s.Status = target
	s.Touch()
	s.AddDomainEvent(newShipmentStatusChangedEvent(s, from, target))
	return nil
}

// Recompute rebuilds every derived cost figure from items and details.
// fallbackRmbToEgp is only consulted while no shipping details exist.
func (s *Shipment) Recompute(fallbackRmbToEgp decimal.Decimal) {
	s.Costs = ComputeCosts(CostInputs{
		Items:            s.Items,
		Details:          s.Details,
		FallbackRmbToEgp: fallbackRmbToEgp,
	})
	s.BalanceEgp = outstanding(s.Costs.FinalTotalCostEgp, s.TotalPaidEgp)
}

// ApplySettlement records the authoritative paid total after a payment was
// persisted. totalPaid must be the SUM over all persisted payments.
func (s *Shipment) ApplySettlement(totalPaidEgp decimal.Decimal, lastPaymentDate *time.Time) {
	s.TotalPaidEgp = totalPaidEgp.Round(valueobject.MoneyScale)
	s.BalanceEgp = outstanding(s.Costs.FinalTotalCostEgp, s.TotalPaidEgp)
	s.LastPaymentDate = lastPaymentDate
	s.Touch()
	if s.BalanceEgp.IsZero() && s.TotalPaidEgp.IsPositive() {
		s.AddDomainEvent(&ShipmentSettledEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(EventShipmentSettled, "Shipment", s.ID),
			TotalPaidEgp:    s.TotalPaidEgp.StringFixed(valueobject.MoneyScale),
		})
	}
}

// RemainingBalance returns max(0, cost - paid)
func (s *Shipment) RemainingBalance() decimal.Decimal {
	return outstanding(s.Costs.FinalTotalCostEgp, s.TotalPaidEgp)
}

// PaymentState derives the payment status from the balance
func (s *Shipment) PaymentState() PaymentState {
	switch {
	case s.TotalPaidEgp.IsZero():
		return PaymentStateUnpaid
	case s.BalanceEgp.IsPositive():
		return PaymentStatePartiallyPaid
	default:
		return PaymentStateSettled
	}
}

// CanDelete reports whether the shipment may be removed. Shipments with
// recorded payments are never deleted; corrections use offsetting payments.
func (s *Shipment) CanDelete() bool {
	return s.TotalPaidEgp.IsZero()
}

// ReceiptUnitCostEgp returns the landed unit cost in EGP for one item,
// used to value inventory movements at receipt. The purchase value of the
// line is converted at the locked rate and spread over its pieces.
func (s *Shipment) ReceiptUnitCostEgp(item *ShipmentItem) decimal.Decimal {
	pieces := item.TotalPieces()
	if pieces == 0 {
		return decimal.Zero
	}
	rate := decimal.Zero
	if s.Details != nil {
		rate = s.Details.RmbToEgpRate
	}
	if !rate.IsPositive() {
		return decimal.Zero
	}
	lineEgp := item.LineTotalRmb().Mul(rate)
	return lineEgp.Div(decimal.NewFromInt(pieces)).Round(valueobject.MoneyScale)
}

func outstanding(cost, paid decimal.Decimal) decimal.Decimal {
	diff := cost.Sub(paid)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}
