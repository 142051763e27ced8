package shipping

import (
	"context"

	"github.com/google/uuid"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// ShipmentRepository defines persistence operations for shipments
type ShipmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)
	// FindByIDForUpdate loads the shipment under a row lock. Must run
	// inside a transaction; the settlement engine serializes on it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Shipment, error)
	FindByCode(ctx context.Context, code string) (*Shipment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Shipment, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, shipment *Shipment) error
	// SaveWithLock persists with an optimistic version check and returns
	// shared.ErrConcurrencyConflict when the row moved underneath
	SaveWithLock(ctx context.Context, shipment *Shipment) error
	Delete(ctx context.Context, id uuid.UUID) error
}
