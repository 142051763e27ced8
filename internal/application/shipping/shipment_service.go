package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/audit"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/inventory"
	"github.com/cargoledger/backend/internal/domain/partner"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/domain/shipping"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

// ShipmentService drives the shipment wizard: purchase items, freight
// details with locked rate snapshots, customs and clearance rates, receipt
// and archiving. Every mutation recomputes the derived costs from scratch.
type ShipmentService struct {
	shipments shipping.ShipmentRepository
	payments  finance.PaymentRepository
	rates     finance.ExchangeRateRepository
	movements inventory.MovementRepository
	suppliers partner.SupplierRepository
	audits    audit.LogRepository
	tx        shared.TransactionManager
	metrics   *telemetry.BusinessMetrics
	logger    *zap.Logger
}

// NewShipmentService creates the shipment service
func NewShipmentService(
	shipments shipping.ShipmentRepository,
	payments finance.PaymentRepository,
	rates finance.ExchangeRateRepository,
	movements inventory.MovementRepository,
	suppliers partner.SupplierRepository,
	audits audit.LogRepository,
	tx shared.TransactionManager,
	metrics *telemetry.BusinessMetrics,
	logger *zap.Logger,
) *ShipmentService {
	return &ShipmentService{
		shipments: shipments,
		payments:  payments,
		rates:     rates,
		movements: movements,
		suppliers: suppliers,
		audits:    audits,
		tx:        tx,
		metrics:   metrics,
		logger:    logger,
	}
}

// ItemInput is one purchase line of the wizard's first step
type ItemInput struct {
	Description     string
	Cartons         int64
	PiecesPerCarton int64
	UnitPriceRmb    decimal.Decimal
}

// CreateShipmentRequest is the wizard's first step
type CreateShipmentRequest struct {
	Code         string
	Name         string
	SupplierID   uuid.UUID
	PurchaseDate time.Time
	Items        []ItemInput
	CreatedBy    uuid.UUID
}

// Create opens a new shipment with its purchase items
func (s *ShipmentService) Create(ctx context.Context, req CreateShipmentRequest) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "create",
		telemetry.WithAttribute(telemetry.SpanAttrShipmentCode, req.Code))
	defer span.End()

	if existing, err := s.shipments.FindByCode(ctx, req.Code); err == nil && existing != nil {
		err := shared.NewDomainError("ALREADY_EXISTS", "a shipment with this code already exists")
		telemetry.RecordError(span, err)
		return nil, err
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	supplier, err := s.suppliers.FindByID(ctx, req.SupplierID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !supplier.Active {
		err := shared.NewDomainError("VALIDATION", "supplier is deactivated")
		telemetry.RecordError(span, err)
		return nil, err
	}

	items, err := buildItems(req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	shipment, err := shipping.NewShipment(req.Code, req.Name, supplier.ID, supplier.Name, req.PurchaseDate, items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	shipment.Recompute(s.fallbackRate(ctx))

	if err := s.shipments.Save(ctx, shipment); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ShipmentsCreated.Add(ctx, 1)
	}
	s.writeAudit(req.CreatedBy, shipment, audit.ActionCreate, map[string]string{"code": shipment.Code})
	s.logger.Info("shipment created",
		zap.String("code", shipment.Code),
		zap.String("supplier", shipment.SupplierName))
	return shipment, nil
}

// UpdateItems replaces the purchase items and recomputes costs
func (s *ShipmentService) UpdateItems(ctx context.Context, shipmentID uuid.UUID, inputs []ItemInput, updatedBy uuid.UUID) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "update_items")
	defer span.End()

	items, err := buildItems(inputs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	shipment, err := s.mutate(ctx, shipmentID, func(sh *shipping.Shipment) error {
		return sh.ReplaceItems(items)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(updatedBy, shipment, audit.ActionUpdate, map[string]string{"step": "items"})
	return shipment, nil
}

// ShippingDetailsRequest is the wizard's freight step. When the exchange
// rates are omitted the latest known rates are snapshotted.
type ShippingDetailsRequest struct {
	CommissionRatePct     decimal.Decimal
	ShippingAreaSqm       decimal.Decimal
	ShippingCostPerSqmUsd decimal.Decimal
	UsdToRmbRate          *decimal.Decimal
	RmbToEgpRate          *decimal.Decimal
	UpdatedBy             uuid.UUID
}

// SaveShippingDetails records the freight step, locking the rate snapshot
// and advancing the shipment to READY_FOR_RECEIPT on first save
func (s *ShipmentService) SaveShippingDetails(ctx context.Context, shipmentID uuid.UUID, req ShippingDetailsRequest) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "save_shipping_details")
	defer span.End()

	usdToRmb, err := s.resolveRate(ctx, req.UsdToRmbRate, valueobject.USD, valueobject.RMB)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	rmbToEgp, err := s.resolveRate(ctx, req.RmbToEgpRate, valueobject.RMB, valueobject.EGP)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	details, err := shipping.NewShippingDetails(
		req.CommissionRatePct, req.ShippingAreaSqm, req.ShippingCostPerSqmUsd, usdToRmb, rmbToEgp)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	shipment, err := s.mutate(ctx, shipmentID, func(sh *shipping.Shipment) error {
		return sh.SaveShippingDetails(details)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(req.UpdatedBy, shipment, audit.ActionUpdate, map[string]string{"step": "shipping"})
	return shipment, nil
}

// ClearanceRateInput is one item's step-3 rates
type ClearanceRateInput struct {
	ItemID                uuid.UUID
	CustomsPerCartonEgp   decimal.Decimal
	ClearancePerCartonEgp decimal.Decimal
}

// SaveClearance records customs and clearance per-carton rates
func (s *ShipmentService) SaveClearance(ctx context.Context, shipmentID uuid.UUID, inputs []ClearanceRateInput, updatedBy uuid.UUID) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "save_clearance")
	defer span.End()

	rates := make([]shipping.ClearanceRate, len(inputs))
	for i, in := range inputs {
		rates[i] = shipping.ClearanceRate{
			ItemID:                in.ItemID,
			CustomsPerCartonEgp:   in.CustomsPerCartonEgp,
			ClearancePerCartonEgp: in.ClearancePerCartonEgp,
		}
	}

	shipment, err := s.mutate(ctx, shipmentID, func(sh *shipping.Shipment) error {
		return sh.ApplyClearanceRates(rates)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(updatedBy, shipment, audit.ActionUpdate, map[string]string{"step": "clearance"})
	return shipment, nil
}

// ConfirmPurchase closes the purchase step
func (s *ShipmentService) ConfirmPurchase(ctx context.Context, shipmentID, updatedBy uuid.UUID) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "confirm_purchase")
	defer span.End()

	shipment, err := s.mutate(ctx, shipmentID, func(sh *shipping.Shipment) error {
		return sh.ConfirmPurchase()
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(updatedBy, shipment, audit.ActionStatusChange, map[string]string{"status": string(shipment.Status)})
	return shipment, nil
}

// MarkReceived advances the shipment to RECEIVED and writes one inventory
// movement per item, all in the same transaction
func (s *ShipmentService) MarkReceived(ctx context.Context, shipmentID, updatedBy uuid.UUID) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "mark_received")
	defer span.End()

	var shipment *shipping.Shipment
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		sh, err := s.shipments.FindByIDForUpdate(txCtx, shipmentID)
		if err != nil {
			return err
		}
		if err := sh.MarkReceived(); err != nil {
			return err
		}
		sh.Recompute(s.fallbackRate(txCtx))

		movements := make([]inventory.Movement, 0, len(sh.Items))
		for i := range sh.Items {
			item := &sh.Items[i]
			m, err := inventory.NewReceiptMovement(
				sh.ID, item.ID, item.Description, item.TotalPieces(), sh.ReceiptUnitCostEgp(item))
			if err != nil {
				return err
			}
			movements = append(movements, *m)
		}
		if err := s.movements.CreateBatch(txCtx, movements); err != nil {
			return err
		}
		if err := s.shipments.Save(txCtx, sh); err != nil {
			return err
		}
		shipment = sh
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ShipmentsReceived.Add(ctx, 1)
	}
	s.writeAudit(updatedBy, shipment, audit.ActionStatusChange, map[string]string{"status": string(shipment.Status)})
	s.logger.Info("shipment received",
		zap.String("code", shipment.Code),
		zap.Int("items", len(shipment.Items)))
	return shipment, nil
}

// Archive closes out a received shipment
func (s *ShipmentService) Archive(ctx context.Context, shipmentID, updatedBy uuid.UUID) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "archive")
	defer span.End()

	shipment, err := s.mutate(ctx, shipmentID, func(sh *shipping.Shipment) error {
		return sh.Archive()
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(updatedBy, shipment, audit.ActionStatusChange, map[string]string{"status": string(shipment.Status)})
	return shipment, nil
}

// Get loads one shipment
func (s *ShipmentService) Get(ctx context.Context, shipmentID uuid.UUID) (*shipping.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "get")
	defer span.End()

	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return shipment, nil
}

// List returns shipments, paginated and filterable
func (s *ShipmentService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[shipping.Shipment], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "list")
	defer span.End()

	shipments, err := s.shipments.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[shipping.Shipment]{}, err
	}
	total, err := s.shipments.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[shipping.Shipment]{}, err
	}
	return shared.NewPaginated(shipments, total, filter.Page, filter.PageSize), nil
}

// Delete removes a shipment and its items. Rejected once any payment has
// been recorded; corrections use offsetting payments instead.
func (s *ShipmentService) Delete(ctx context.Context, shipmentID, deletedBy uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "delete")
	defer span.End()

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		shipment, err := s.shipments.FindByIDForUpdate(txCtx, shipmentID)
		if err != nil {
			return err
		}
		count, err := s.payments.CountByShipment(txCtx, shipmentID)
		if err != nil {
			return err
		}
		if count > 0 || !shipment.CanDelete() {
			return shared.NewDomainError("INVALID_STATE", "cannot delete a shipment with recorded payments")
		}
		s.writeAudit(deletedBy, shipment, audit.ActionDelete, map[string]string{"code": shipment.Code})
		return s.shipments.Delete(txCtx, shipmentID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// mutate loads the shipment under a row lock, applies fn, recomputes the
// derived costs and persists, all in one transaction
func (s *ShipmentService) mutate(ctx context.Context, shipmentID uuid.UUID, fn func(*shipping.Shipment) error) (*shipping.Shipment, error) {
	var shipment *shipping.Shipment
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		sh, err := s.shipments.FindByIDForUpdate(txCtx, shipmentID)
		if err != nil {
			return err
		}
		if err := fn(sh); err != nil {
			return err
		}
		sh.Recompute(s.fallbackRate(txCtx))
		if err := s.shipments.Save(txCtx, sh); err != nil {
			return err
		}
		shipment = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// fallbackRate returns the latest known RMB to EGP market rate, zero when
// none exists. Only consulted while no shipping details lock a snapshot.
func (s *ShipmentService) fallbackRate(ctx context.Context) decimal.Decimal {
	rate, err := s.rates.FindLatest(ctx, valueobject.RMB, valueobject.EGP)
	if err != nil {
		return decimal.Zero
	}
	return rate.Rate
}

func (s *ShipmentService) resolveRate(ctx context.Context, explicit *decimal.Decimal, from, to valueobject.Currency) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}
	rate, err := s.rates.FindLatest(ctx, from, to)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Decimal{}, shared.NewDomainError("VALIDATION",
				"no exchange rate on file for "+string(from)+"/"+string(to)+", provide one explicitly")
		}
		return decimal.Decimal{}, err
	}
	return rate.Rate, nil
}

func (s *ShipmentService) writeAudit(userID uuid.UUID, shipment *shipping.Shipment, action audit.ActionType, details map[string]string) {
	if s.audits == nil {
		return
	}
	entry, err := audit.NewLog(userID, "Shipment", shipment.ID, action, details)
	if err != nil {
		s.logger.Warn("failed to build audit entry", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audits.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit entry",
				zap.String("shipment_id", shipment.ID.String()),
				zap.Error(err))
		}
	}()
}

func buildItems(inputs []ItemInput) ([]shipping.ShipmentItem, error) {
	if len(inputs) == 0 {
		return nil, shared.NewDomainError("VALIDATION", "shipment needs at least one item")
	}
	items := make([]shipping.ShipmentItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := shipping.NewShipmentItem(in.Description, in.Cartons, in.PiecesPerCarton, in.UnitPriceRmb)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}
