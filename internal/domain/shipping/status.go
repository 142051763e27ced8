package shipping

// ShipmentStatus represents the lifecycle state of a shipment
type ShipmentStatus string

const (
	// StatusNew means the purchase step is being drafted
	StatusNew ShipmentStatus = "NEW"
	// StatusAwaitingShipping means the purchase is confirmed and goods await freight
	StatusAwaitingShipping ShipmentStatus = "AWAITING_SHIPPING"
	// StatusReadyForReceipt means shipping details are recorded and rates are locked
	StatusReadyForReceipt ShipmentStatus = "READY_FOR_RECEIPT"
	// StatusReceived means goods arrived and inventory movements were written
	StatusReceived ShipmentStatus = "RECEIVED"
	// StatusArchived means the shipment is closed out
	StatusArchived ShipmentStatus = "ARCHIVED"
)

// IsValid checks if the status is a known value
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusAwaitingShipping, StatusReadyForReceipt, StatusReceived, StatusArchived:
		return true
	}
	return false
}

// IsTerminal returns true when no further transitions are allowed
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusArchived
}

// CanTransitionTo checks whether the status may move to the target
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	transitions := map[ShipmentStatus][]ShipmentStatus{
		StatusNew:              {StatusAwaitingShipping, StatusReadyForReceipt},
		StatusAwaitingShipping: {StatusReadyForReceipt},
		StatusReadyForReceipt:  {StatusReceived},
		StatusReceived:         {StatusArchived},
		StatusArchived:         {},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PaymentState is derived from the shipment balance, never stored
type PaymentState string

const (
	PaymentStateUnpaid        PaymentState = "UNPAID"
	PaymentStatePartiallyPaid PaymentState = "PARTIALLY_PAID"
	PaymentStateSettled       PaymentState = "SETTLED"
)
