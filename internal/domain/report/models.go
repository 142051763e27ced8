package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardSummary is the landing-page read model
type DashboardSummary struct {
	StatusCounts         map[string]int64      `json:"status_counts"`
	TotalCostEgp         decimal.Decimal       `json:"total_cost_egp"`
	TotalPaidEgp         decimal.Decimal       `json:"total_paid_egp"`
	TotalOutstandingEgp  decimal.Decimal       `json:"total_outstanding_egp"`
	RecentPayments       []RecentPayment       `json:"recent_payments"`
	OutstandingShipments []OutstandingShipment `json:"outstanding_shipments"`
}

// RecentPayment is one row of the dashboard payment feed
type RecentPayment struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	ShipmentID   uuid.UUID       `json:"shipment_id"`
	ShipmentCode string          `json:"shipment_code"`
	PaymentDate  time.Time       `json:"payment_date"`
	AmountEgp    decimal.Decimal `json:"amount_egp"`
	Method       string          `json:"method"`
}

// OutstandingShipment is one shipment still carrying a balance
type OutstandingShipment struct {
	ShipmentID   uuid.UUID       `json:"shipment_id"`
	Code         string          `json:"code"`
	SupplierName string          `json:"supplier_name"`
	CostEgp      decimal.Decimal `json:"cost_egp"`
	PaidEgp      decimal.Decimal `json:"paid_egp"`
	BalanceEgp   decimal.Decimal `json:"balance_egp"`
}

// SupplierBalance aggregates cost and payments per supplier
type SupplierBalance struct {
	SupplierID     uuid.UUID       `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name"`
	ShipmentCount  int64           `json:"shipment_count"`
	TotalCostEgp   decimal.Decimal `json:"total_cost_egp"`
	TotalPaidEgp   decimal.Decimal `json:"total_paid_egp"`
	OutstandingEgp decimal.Decimal `json:"outstanding_egp"`
}

// StatementEntryType marks a statement line as cost or payment
type StatementEntryType string

const (
	StatementDebit  StatementEntryType = "DEBIT"
	StatementCredit StatementEntryType = "CREDIT"
)

// StatementLine is one chronological row in a supplier statement.
// Debits are shipment costs, credits are payments; the running balance
// is filled in by the report service.
type StatementLine struct {
	Date           time.Time          `json:"date"`
	EntryType      StatementEntryType `json:"entry_type"`
	ShipmentID     uuid.UUID          `json:"shipment_id"`
	ShipmentCode   string             `json:"shipment_code"`
	Description    string             `json:"description"`
	DebitEgp       decimal.Decimal    `json:"debit_egp"`
	CreditEgp      decimal.Decimal    `json:"credit_egp"`
	RunningBalance decimal.Decimal    `json:"running_balance"`
	// Formatted amounts for export, locale-aware
	DebitFormatted   string `json:"debit_formatted,omitempty"`
	CreditFormatted  string `json:"credit_formatted,omitempty"`
	BalanceFormatted string `json:"balance_formatted,omitempty"`
}

// SupplierStatement is the full statement for one supplier over a range
type SupplierStatement struct {
	SupplierID     uuid.UUID       `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []StatementLine `json:"lines"`
}

// MovementLine is one row of the inventory movement ledger report
type MovementLine struct {
	MovementID   uuid.UUID       `json:"movement_id"`
	ShipmentID   uuid.UUID       `json:"shipment_id"`
	ShipmentCode string          `json:"shipment_code"`
	Description  string          `json:"description"`
	Quantity     int64           `json:"quantity"`
	UnitCostEgp  decimal.Decimal `json:"unit_cost_egp"`
	TotalCostEgp decimal.Decimal `json:"total_cost_egp"`
	MovementType string          `json:"movement_type"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StatementQuery scopes a supplier statement
type StatementQuery struct {
	SupplierID uuid.UUID
	From       time.Time
	To         time.Time
}

// MovementQuery scopes the movement ledger report
type MovementQuery struct {
	ShipmentID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// ReadRepository exposes the aggregate queries the reports are built on.
// Implementations read across shipments, payments and movements.
type ReadRepository interface {
	StatusCounts(ctx context.Context) (map[string]int64, error)
	Totals(ctx context.Context) (cost, paid, outstanding decimal.Decimal, err error)
	RecentPayments(ctx context.Context, limit int) ([]RecentPayment, error)
	OutstandingShipments(ctx context.Context, limit int) ([]OutstandingShipment, error)
	SupplierBalances(ctx context.Context) ([]SupplierBalance, error)
	// StatementLines returns debit and credit rows in chronological order
	// without running balances
	StatementLines(ctx context.Context, q StatementQuery) ([]StatementLine, error)
	// OpeningBalance returns cost minus payments before the range start
	OpeningBalance(ctx context.Context, supplierID uuid.UUID, before time.Time) (decimal.Decimal, error)
	MovementLines(ctx context.Context, q MovementQuery) ([]MovementLine, error)
}
