package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cargoledger/backend/internal/domain/report"
)

// GormReportRepository implements the report ReadRepository using GORM.
// It reads across shipments, payments and inventory movements.
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// StatusCounts returns the number of shipments per status
func (r *GormReportRepository) StatusCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := conn(ctx, r.db).Table("shipments").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Totals returns aggregate cost, paid and outstanding figures over all shipments
func (r *GormReportRepository) Totals(ctx context.Context) (cost, paid, outstanding decimal.Decimal, err error) {
	var row struct {
		Cost        decimal.Decimal
		Paid        decimal.Decimal
		Outstanding decimal.Decimal
	}
	if err = conn(ctx, r.db).Table("shipments").
		Select("COALESCE(SUM(final_total_cost_egp), 0) AS cost, COALESCE(SUM(total_paid_egp), 0) AS paid, COALESCE(SUM(balance_egp), 0) AS outstanding").
		Scan(&row).Error; err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return row.Cost, row.Paid, row.Outstanding, nil
}

// RecentPayments returns the newest payments for the dashboard feed
func (r *GormReportRepository) RecentPayments(ctx context.Context, limit int) ([]report.RecentPayment, error) {
	var rows []report.RecentPayment
	if err := conn(ctx, r.db).Table("shipment_payments p").
		Select("p.id AS payment_id, p.shipment_id, s.code AS shipment_code, p.payment_date, p.amount_egp, p.method").
		Joins("JOIN shipments s ON s.id = p.shipment_id").
		Order("p.payment_date DESC, p.created_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// OutstandingShipments returns shipments still carrying a balance, largest first
func (r *GormReportRepository) OutstandingShipments(ctx context.Context, limit int) ([]report.OutstandingShipment, error) {
	var rows []report.OutstandingShipment
	if err := conn(ctx, r.db).Table("shipments").
		Select("id AS shipment_id, code, supplier_name, final_total_cost_egp AS cost_egp, total_paid_egp AS paid_egp, balance_egp").
		Where("balance_egp > 0").
		Order("balance_egp DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SupplierBalances aggregates cost and payments per supplier
func (r *GormReportRepository) SupplierBalances(ctx context.Context) ([]report.SupplierBalance, error) {
	var rows []report.SupplierBalance
	if err := conn(ctx, r.db).Table("shipments").
		Select("supplier_id, supplier_name, COUNT(*) AS shipment_count, COALESCE(SUM(final_total_cost_egp), 0) AS total_cost_egp, COALESCE(SUM(total_paid_egp), 0) AS total_paid_egp, COALESCE(SUM(balance_egp), 0) AS outstanding_egp").
		Group("supplier_id, supplier_name").
		Order("outstanding_egp DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// StatementLines returns the chronological debit and credit rows for one
// supplier over a date range. Debits are shipment costs dated at purchase,
// credits are payments dated at payment. Running balances are not filled.
func (r *GormReportRepository) StatementLines(ctx context.Context, q report.StatementQuery) ([]report.StatementLine, error) {
	const query = `
SELECT date, entry_type, shipment_id, shipment_code, description, debit_egp, credit_egp FROM (
    SELECT s.purchase_date        AS date,
           'DEBIT'                AS entry_type,
           s.id                   AS shipment_id,
           s.code                 AS shipment_code,
           s.name                 AS description,
           s.final_total_cost_egp AS debit_egp,
           0                      AS credit_egp
    FROM shipments s
    WHERE s.supplier_id = ? AND s.purchase_date >= ? AND s.purchase_date <= ?
    UNION ALL
    SELECT p.payment_date AS date,
           'CREDIT'       AS entry_type,
           p.shipment_id  AS shipment_id,
           s.code         AS shipment_code,
           p.method       AS description,
           0              AS debit_egp,
           p.amount_egp   AS credit_egp
    FROM shipment_payments p
    JOIN shipments s ON s.id = p.shipment_id
    WHERE s.supplier_id = ? AND p.payment_date >= ? AND p.payment_date <= ?
) entries
ORDER BY date ASC, entry_type ASC`

	var rows []report.StatementLine
	if err := conn(ctx, r.db).
		Raw(query, q.SupplierID, q.From, q.To, q.SupplierID, q.From, q.To).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// OpeningBalance returns cost minus payments for the supplier before the
// given date
func (r *GormReportRepository) OpeningBalance(ctx context.Context, supplierID uuid.UUID, before time.Time) (decimal.Decimal, error) {
	var cost decimal.Decimal
	if err := conn(ctx, r.db).Table("shipments").
		Select("COALESCE(SUM(final_total_cost_egp), 0)").
		Where("supplier_id = ? AND purchase_date < ?", supplierID, before).
		Scan(&cost).Error; err != nil {
		return decimal.Zero, err
	}

	var paid decimal.Decimal
	if err := conn(ctx, r.db).Table("shipment_payments p").
		Select("COALESCE(SUM(p.amount_egp), 0)").
		Joins("JOIN shipments s ON s.id = p.shipment_id").
		Where("s.supplier_id = ? AND p.payment_date < ?", supplierID, before).
		Scan(&paid).Error; err != nil {
		return decimal.Zero, err
	}

	return cost.Sub(paid), nil
}

// MovementLines returns the inventory movement ledger rows
func (r *GormReportRepository) MovementLines(ctx context.Context, q report.MovementQuery) ([]report.MovementLine, error) {
	query := conn(ctx, r.db).Table("inventory_movements m").
		Select("m.id AS movement_id, m.shipment_id, s.code AS shipment_code, m.description, m.quantity, m.unit_cost_egp, m.quantity * m.unit_cost_egp AS total_cost_egp, m.movement_type, m.created_at").
		Joins("JOIN shipments s ON s.id = m.shipment_id").
		Order("m.created_at DESC")

	if q.ShipmentID != nil {
		query = query.Where("m.shipment_id = ?", *q.ShipmentID)
	}
	if q.From != nil {
		query = query.Where("m.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("m.created_at <= ?", *q.To)
	}

	var rows []report.MovementLine
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Ensure GormReportRepository implements ReadRepository
var _ report.ReadRepository = (*GormReportRepository)(nil)
