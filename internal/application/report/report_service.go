package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/cargoledger/backend/internal/domain/partner"
	"github.com/cargoledger/backend/internal/domain/report"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

const (
	dashboardRecentPayments = 10
	dashboardOutstanding    = 10
)

// ReportService assembles the accounting read models: dashboard, supplier
// balances, supplier statements and the inventory movement ledger.
type ReportService struct {
	reads     report.ReadRepository
	suppliers partner.SupplierRepository
	printer   *message.Printer
	logger    *zap.Logger
}

// NewReportService creates the report service
func NewReportService(reads report.ReadRepository, suppliers partner.SupplierRepository, logger *zap.Logger) *ReportService {
	return &ReportService{
		reads:     reads,
		suppliers: suppliers,
		printer:   message.NewPrinter(language.English),
		logger:    logger,
	}
}

// Dashboard returns the landing-page summary
func (s *ReportService) Dashboard(ctx context.Context) (*report.DashboardSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "dashboard")
	defer span.End()

	counts, err := s.reads.StatusCounts(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	cost, paid, outstanding, err := s.reads.Totals(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	recent, err := s.reads.RecentPayments(ctx, dashboardRecentPayments)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	open, err := s.reads.OutstandingShipments(ctx, dashboardOutstanding)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &report.DashboardSummary{
		StatusCounts:         counts,
		TotalCostEgp:         cost,
		TotalPaidEgp:         paid,
		TotalOutstandingEgp:  outstanding,
		RecentPayments:       recent,
		OutstandingShipments: open,
	}, nil
}

// SupplierBalances returns cost, paid and outstanding totals per supplier
func (s *ReportService) SupplierBalances(ctx context.Context) ([]report.SupplierBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "supplier_balances")
	defer span.End()

	balances, err := s.reads.SupplierBalances(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return balances, nil
}

// SupplierStatement builds a chronological debit/credit statement with
// running balances for one supplier over a date range
func (s *ReportService) SupplierStatement(ctx context.Context, q report.StatementQuery) (*report.SupplierStatement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "supplier_statement",
		telemetry.WithAttribute(telemetry.SpanAttrSupplierID, q.SupplierID.String()))
	defer span.End()

	if q.SupplierID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "supplier is required")
	}
	if q.To.Before(q.From) {
		return nil, shared.NewDomainError("VALIDATION", "statement range end precedes start")
	}

	supplier, err := s.suppliers.FindByID(ctx, q.SupplierID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	opening, err := s.reads.OpeningBalance(ctx, q.SupplierID, q.From)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	lines, err := s.reads.StatementLines(ctx, q)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	running := opening
	for i := range lines {
		running = running.Add(lines[i].DebitEgp).Sub(lines[i].CreditEgp)
		lines[i].RunningBalance = running
		lines[i].DebitFormatted = s.formatAmount(lines[i].DebitEgp)
		lines[i].CreditFormatted = s.formatAmount(lines[i].CreditEgp)
		lines[i].BalanceFormatted = s.formatAmount(running)
	}

	return &report.SupplierStatement{
		SupplierID:     supplier.ID,
		SupplierName:   supplier.Name,
		From:           q.From,
		To:             q.To,
		OpeningBalance: opening,
		ClosingBalance: running,
		Lines:          lines,
	}, nil
}

// MovementLedger returns the inventory movement report
func (s *ReportService) MovementLedger(ctx context.Context, q report.MovementQuery) ([]report.MovementLine, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "movement_ledger")
	defer span.End()

	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, shared.NewDomainError("VALIDATION", "ledger range end precedes start")
	}

	lines, err := s.reads.MovementLines(ctx, q)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return lines, nil
}

// formatAmount renders an amount with grouping separators for exports,
// e.g. 1234567.5 -> "1,234,567.50"
func (s *ReportService) formatAmount(d decimal.Decimal) string {
	return s.printer.Sprint(number.Decimal(d.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
