package shipping

import (
	"github.com/google/uuid"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// Event types emitted by the shipment aggregate
const (
	EventShipmentCreated       = "shipping.shipment.created"
	EventShipmentStatusChanged = "shipping.shipment.status_changed"
	EventShipmentReceived      = "shipping.shipment.received"
	EventShipmentSettled       = "shipping.shipment.settled"
)

// ShipmentCreatedEvent is emitted when a shipment is created
type ShipmentCreatedEvent struct {
	shared.BaseDomainEvent
	Code       string    `json:"code"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

// ShipmentStatusChangedEvent is emitted on every status transition
type ShipmentStatusChangedEvent struct {
	shared.BaseDomainEvent
	From ShipmentStatus `json:"from"`
	To   ShipmentStatus `json:"to"`
}

// ShipmentReceivedEvent is emitted when goods arrive; one inventory
// movement per item is written by the receiving side
type ShipmentReceivedEvent struct {
	shared.BaseDomainEvent
	ItemCount int `json:"item_count"`
}

// ShipmentSettledEvent is emitted when the balance reaches zero
type ShipmentSettledEvent struct {
	shared.BaseDomainEvent
	TotalPaidEgp string `json:"total_paid_egp"`
}

func newShipmentCreatedEvent(s *Shipment) *ShipmentCreatedEvent {
	return &ShipmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventShipmentCreated, "Shipment", s.ID),
		Code:            s.Code,
		SupplierID:      s.SupplierID,
	}
}

func newShipmentStatusChangedEvent(s *Shipment, from, to ShipmentStatus) *ShipmentStatusChangedEvent {
	return &ShipmentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventShipmentStatusChanged, "Shipment", s.ID),
		From:            from,
		To:              to,
	}
}

func newShipmentReceivedEvent(s *Shipment) *ShipmentReceivedEvent {
	return &ShipmentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventShipmentReceived, "Shipment", s.ID),
		ItemCount:       len(s.Items),
	}
}
