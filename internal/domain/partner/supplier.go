package partner

import (
	"context"

	"github.com/google/uuid"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// Supplier is the Chinese-side counterparty shipments are purchased from
type Supplier struct {
	shared.BaseAggregateRoot
	Name        string
	ContactName string
	Phone       string
	Email       string
	Address     string
	Notes       string
	Active      bool
}

// NewSupplier creates an active supplier
func NewSupplier(name, contactName, phone, email, address, notes string) (*Supplier, error) {
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION", "supplier name is required")
	}
	return &Supplier{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		ContactName:       contactName,
		Phone:             phone,
		Email:             email,
		Address:           address,
		Notes:             notes,
		Active:            true,
	}, nil
}

// Update changes supplier master data
func (s *Supplier) Update(name, contactName, phone, email, address, notes string) error {
	if name == "" {
		return shared.NewDomainError("VALIDATION", "supplier name is required")
	}
	s.Name = name
	s.ContactName = contactName
	s.Phone = phone
	s.Email = email
	s.Address = address
	s.Notes = notes
	s.Touch()
	return nil
}

// Deactivate hides the supplier from new shipments. Existing shipments
// keep referencing it.
func (s *Supplier) Deactivate() {
	s.Active = false
	s.Touch()
}

// Activate restores a deactivated supplier
func (s *Supplier) Activate() {
	s.Active = true
	s.Touch()
}

// SupplierRepository defines persistence operations for suppliers
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindByName(ctx context.Context, name string) (*Supplier, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Supplier, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, supplier *Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
}
