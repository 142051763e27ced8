package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/partner"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shipping"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

// SupplierService manages supplier master data
type SupplierService struct {
	suppliers partner.SupplierRepository
	shipments shipping.ShipmentRepository
	logger    *zap.Logger
}

// NewSupplierService creates the supplier service
func NewSupplierService(
	suppliers partner.SupplierRepository,
	shipments shipping.ShipmentRepository,
	logger *zap.Logger,
) *SupplierService {
	return &SupplierService{
		suppliers: suppliers,
		shipments: shipments,
		logger:    logger,
	}
}

// CreateSupplierRequest is the input to supplier creation
type CreateSupplierRequest struct {
	Name        string
	ContactName string
	Phone       string
	Email       string
	Address     string
	Notes       string
}

// Create registers a new supplier. Names are unique.
func (s *SupplierService) Create(ctx context.Context, req CreateSupplierRequest) (*partner.Supplier, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier", "create")
	defer span.End()

	existing, err := s.suppliers.FindByName(ctx, req.Name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "a supplier with this name already exists")
	}

	supplier, err := partner.NewSupplier(req.Name, req.ContactName, req.Phone, req.Email, req.Address, req.Notes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.suppliers.Save(ctx, supplier); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("supplier created",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("name", supplier.Name))
	return supplier, nil
}

// Get returns one supplier by ID
func (s *SupplierService) Get(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier", "get")
	defer span.End()

	supplier, err := s.suppliers.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return supplier, nil
}

// List returns suppliers matching the filter, paginated
func (s *SupplierService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[partner.Supplier], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier", "list")
	defer span.End()

	suppliers, err := s.suppliers.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[partner.Supplier]{}, err
	}
	total, err := s.suppliers.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[partner.Supplier]{}, err
	}
	return shared.NewPaginated(suppliers, total, filter.Page, filter.PageSize), nil
}

// UpdateSupplierRequest is the input to supplier update
type UpdateSupplierRequest struct {
	Name        string
	ContactName string
	Phone       string
	Email       string
	Address     string
	Notes       string
}

// Update changes supplier master data. Renaming onto an existing
// supplier's name is rejected.
func (s *SupplierService) Update(ctx context.Context, id uuid.UUID, req UpdateSupplierRequest) (*partner.Supplier, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier", "update")
	defer span.End()

	supplier, err := s.suppliers.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.Name != supplier.Name {
		existing, err := s.suppliers.FindByName(ctx, req.Name)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if existing != nil {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "a supplier with this name already exists")
		}
	}

	if err := supplier.Update(req.Name, req.ContactName, req.Phone, req.Email, req.Address, req.Notes); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.suppliers.Save(ctx, supplier); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return supplier, nil
}

// SetActive activates or deactivates a supplier
func (s *SupplierService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*partner.Supplier, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier", "set_active")
	defer span.End()

	supplier, err := s.suppliers.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if active {
		supplier.Activate()
	} else {
		supplier.Deactivate()
	}
	if err := s.suppliers.Save(ctx, supplier); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return supplier, nil
}

// Delete removes a supplier. Suppliers referenced by shipments cannot be
// deleted; deactivate them instead.
func (s *SupplierService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier", "delete")
	defer span.End()

	if _, err := s.suppliers.FindByID(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	count, err := s.shipments.Count(ctx, shared.Filter{
		Filters: map[string]any{"supplier_id": id},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if count > 0 {
		return shared.NewDomainError("INVALID_STATE",
			"supplier has shipments and cannot be deleted, deactivate it instead")
	}

	if err := s.suppliers.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("supplier deleted", zap.String("supplier_id", id.String()))
	return nil
}
