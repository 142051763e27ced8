package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/audit"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/domain/shipping"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

// overpaymentEpsilon absorbs rounding noise at the overdraw boundary: a
// payment may exceed the remaining balance by at most this much.
var overpaymentEpsilon = decimal.RequireFromString("0.0001")

// SettlementService records payments against shipments. Every recording
// runs in one transaction under a row lock on the shipment, so two
// payments against the same shipment serialize while different shipments
// proceed in parallel. Recording is not idempotent: submitting the same
// request twice books two payments.
type SettlementService struct {
	shipments shipping.ShipmentRepository
	payments  finance.PaymentRepository
	audits    audit.LogRepository
	tx        shared.TransactionManager
	metrics   *telemetry.BusinessMetrics
	logger    *zap.Logger
}

// NewSettlementService creates the settlement service
func NewSettlementService(
	shipments shipping.ShipmentRepository,
	payments finance.PaymentRepository,
	audits audit.LogRepository,
	tx shared.TransactionManager,
	metrics *telemetry.BusinessMetrics,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		shipments: shipments,
		payments:  payments,
		audits:    audits,
		tx:        tx,
		metrics:   metrics,
		logger:    logger,
	}
}

// RecordPaymentRequest is the input to payment recording
type RecordPaymentRequest struct {
	ShipmentID      uuid.UUID
	PaymentDate     time.Time
	Currency        valueobject.Currency
	AmountOriginal  decimal.Decimal
	ExchangeRate    *decimal.Decimal
	CostComponent   finance.CostComponent
	Method          finance.PaymentMethod
	ReceiverName    string
	ReferenceNumber string
	Note            string
	CreatedBy       uuid.UUID
}

// RecordPaymentResult reports the settlement state after the payment
type RecordPaymentResult struct {
	Payment         *finance.ShipmentPayment
	TotalPaidEgp    decimal.Decimal
	BalanceEgp      decimal.Decimal
	RemainingBefore decimal.Decimal
	PaymentState    shipping.PaymentState
}

// RecordPayment books a payment against a shipment. Inside one transaction
// it locks the shipment row, normalizes the amount to EGP, rejects
// overdraws, inserts the payment and recomputes the paid total as the SUM
// over all persisted payments. Any failure aborts atomically; the audit
// record is written fire-and-forget after commit.
func (s *SettlementService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record",
		telemetry.WithAttribute(telemetry.SpanAttrShipmentID, req.ShipmentID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCurrency, string(req.Currency)),
	)
	defer span.End()

	var result RecordPaymentResult

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		shipment, err := s.shipments.FindByIDForUpdate(txCtx, req.ShipmentID)
		if err != nil {
			return err
		}

		payment, err := finance.NewShipmentPayment(finance.NewPaymentInput{
			ShipmentID:      req.ShipmentID,
			PaymentDate:     req.PaymentDate,
			Currency:        req.Currency,
			AmountOriginal:  req.AmountOriginal,
			ExchangeRate:    req.ExchangeRate,
			CostComponent:   req.CostComponent,
			Method:          req.Method,
			ReceiverName:    req.ReceiverName,
			ReferenceNumber: req.ReferenceNumber,
			Note:            req.Note,
			CreatedBy:       req.CreatedBy,
		})
		if err != nil {
			return err
		}

		remainingBefore := shipment.RemainingBalance()
		if payment.AmountEgp.GreaterThan(remainingBefore.Add(overpaymentEpsilon)) {
			if s.metrics != nil {
				s.metrics.OverpaymentRejections.Add(txCtx, 1)
			}
			return &finance.OverpaymentError{
				RemainingEgp: remainingBefore,
				AttemptedEgp: payment.AmountEgp,
			}
		}

		if err := s.payments.Create(txCtx, payment); err != nil {
			return err
		}

		totalPaid, err := s.payments.SumByShipment(txCtx, req.ShipmentID)
		if err != nil {
			return err
		}
		lastDate, err := s.payments.LastPaymentDate(txCtx, req.ShipmentID)
		if err != nil {
			return err
		}

		shipment.ApplySettlement(totalPaid, lastDate)
		if err := s.shipments.Save(txCtx, shipment); err != nil {
			return err
		}

		result = RecordPaymentResult{
			Payment:         payment,
			TotalPaidEgp:    shipment.TotalPaidEgp,
			BalanceEgp:      shipment.BalanceEgp,
			RemainingBefore: remainingBefore,
			PaymentState:    shipment.PaymentState(),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, result.Payment.ID.String(),
		telemetry.SpanAttrAmountEgp, result.Payment.AmountEgp.InexactFloat64(),
	)
	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Add(ctx, 1,
			telemetry.AttrCurrency.String(string(req.Currency)),
			telemetry.AttrMethod.String(string(result.Payment.Method)),
		)
		s.metrics.PaymentAmountEgp.Record(ctx, result.Payment.AmountEgp.InexactFloat64())
	}

	s.writeAudit(req.CreatedBy, result.Payment)

	return &result, nil
}

// writeAudit records the payment in the audit trail. Failures are logged
// and swallowed; the payment already committed.
func (s *SettlementService) writeAudit(userID uuid.UUID, payment *finance.ShipmentPayment) {
	if s.audits == nil {
		return
	}
	entry, err := audit.NewLog(userID, "ShipmentPayment", payment.ID, audit.ActionPayment, map[string]string{
		"shipment_id":  payment.ShipmentID.String(),
		"amount_egp":   payment.AmountEgp.StringFixed(valueobject.MoneyScale),
		"currency":     string(payment.Currency),
		"method":       string(payment.Method),
		"payment_date": payment.PaymentDate.Format(time.DateOnly),
	})
	if err != nil {
		s.logger.Warn("failed to build audit entry", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audits.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit entry",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err))
		}
	}()
}

// ListByShipment returns all payments booked against a shipment
func (s *SettlementService) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]finance.ShipmentPayment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "list_by_shipment")
	defer span.End()

	if _, err := s.shipments.FindByID(ctx, shipmentID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payments, err := s.payments.FindByShipment(ctx, shipmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return payments, nil
}

// List returns payments across all shipments, paginated
func (s *SettlementService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[finance.ShipmentPayment], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "list")
	defer span.End()

	payments, err := s.payments.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[finance.ShipmentPayment]{}, err
	}
	total, err := s.payments.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[finance.ShipmentPayment]{}, err
	}
	return shared.NewPaginated(payments, total, filter.Page, filter.PageSize), nil
}
