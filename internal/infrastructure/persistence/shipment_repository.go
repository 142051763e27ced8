package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shipping"
	"github.com/cargoledger/backend/internal/infrastructure/persistence/models"
)

// lockNotAvailable is the SQLSTATE Postgres raises when lock_timeout expires
const lockNotAvailable = "55P03"

// GormShipmentRepository implements ShipmentRepository using GORM
type GormShipmentRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormShipmentRepository creates a new GormShipmentRepository.
// lockTimeout bounds how long FindByIDForUpdate waits on a locked row.
func NewGormShipmentRepository(db *gorm.DB, lockTimeout time.Duration) *GormShipmentRepository {
	return &GormShipmentRepository{db: db, lockTimeout: lockTimeout}
}

// FindByID finds a shipment with its items by ID
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	var model models.ShipmentModel
	if err := conn(ctx, r.db).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads the shipment under a SELECT ... FOR UPDATE row
// lock. It must run inside a transaction; concurrent settlements serialize
// on the lock, and waiting longer than the configured timeout fails with
// shared.ErrLockTimeout.
func (r *GormShipmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	tx := conn(ctx, r.db)
	if r.lockTimeout > 0 {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if err := tx.Exec(timeout).Error; err != nil {
			return nil, err
		}
	}

	var model models.ShipmentModel
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		if isLockTimeout(err) {
			return nil, shared.ErrLockTimeout
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a shipment by its unique code
func (r *GormShipmentRepository) FindByCode(ctx context.Context, code string) (*shipping.Shipment, error) {
	var model models.ShipmentModel
	if err := conn(ctx, r.db).
		Preload("Items").
		First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds shipments matching the filter
func (r *GormShipmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]shipping.Shipment, error) {
	var shipmentModels []models.ShipmentModel
	query := r.applyFilter(conn(ctx, r.db).Model(&models.ShipmentModel{}).Preload("Items"), filter)

	if err := query.Find(&shipmentModels).Error; err != nil {
		return nil, err
	}
	shipments := make([]shipping.Shipment, len(shipmentModels))
	for i, model := range shipmentModels {
		shipments[i] = *model.ToDomain()
	}
	return shipments, nil
}

// Count counts shipments matching the filter
func (r *GormShipmentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&models.ShipmentModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a shipment with its items. The item list is
// rewritten wholesale so removed lines disappear.
func (r *GormShipmentRepository) Save(ctx context.Context, shipment *shipping.Shipment) error {
	db := conn(ctx, r.db)
	model := models.ShipmentModelFromDomain(shipment)
	items := model.Items
	model.Items = nil

	if err := db.Save(model).Error; err != nil {
		return err
	}
	return r.replaceItems(db, model.ID, items)
}

// SaveWithLock persists with an optimistic version check. The row must
// still carry the version the aggregate was loaded with; otherwise another
// writer got there first and shared.ErrConcurrencyConflict is returned.
func (r *GormShipmentRepository) SaveWithLock(ctx context.Context, shipment *shipping.Shipment) error {
	db := conn(ctx, r.db)
	loadedVersion := shipment.Version
	shipment.IncrementVersion()

	model := models.ShipmentModelFromDomain(shipment)
	items := model.Items
	model.Items = nil

	result := db.Model(&models.ShipmentModel{}).
		Where("id = ? AND version = ?", model.ID, loadedVersion).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		shipment.Version = loadedVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		shipment.Version = loadedVersion
		return shared.ErrConcurrencyConflict
	}
	return r.replaceItems(db, model.ID, items)
}

// Delete removes a shipment and its items
func (r *GormShipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Delete(&models.ShipmentItemModel{}, "shipment_id = ?", id).Error; err != nil {
		return err
	}
	result := db.Delete(&models.ShipmentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// replaceItems rewrites the item rows of one shipment
func (r *GormShipmentRepository) replaceItems(db *gorm.DB, shipmentID uuid.UUID, items []models.ShipmentItemModel) error {
	if err := db.Delete(&models.ShipmentItemModel{}, "shipment_id = ?", shipmentID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

// applyFilter applies filter options to the query
func (r *GormShipmentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("purchase_date DESC, code DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormShipmentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ? OR supplier_name ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "outstanding":
			if value == true {
				query = query.Where("balance_egp > 0")
			} else {
				query = query.Where("balance_egp = 0")
			}
		case "preliminary":
			query = query.Where("preliminary = ?", value)
		case "purchased_after":
			query = query.Where("purchase_date >= ?", value)
		case "purchased_before":
			query = query.Where("purchase_date <= ?", value)
		}
	}

	return query
}

// isLockTimeout reports whether err is the Postgres lock_timeout SQLSTATE
func isLockTimeout(err error) bool {
	var stateErr interface{ SQLState() string }
	if errors.As(err, &stateErr) {
		return stateErr.SQLState() == lockNotAvailable
	}
	return false
}

// Ensure GormShipmentRepository implements ShipmentRepository
var _ shipping.ShipmentRepository = (*GormShipmentRepository)(nil)
