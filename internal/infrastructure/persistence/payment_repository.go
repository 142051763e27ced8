package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements PaymentRepository using GORM.
// Payments are append-only; no update or delete paths exist.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ShipmentPayment, error) {
	var model models.ShipmentPaymentModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByShipment returns all payments of one shipment in chronological order
func (r *GormPaymentRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]finance.ShipmentPayment, error) {
	var paymentModels []models.ShipmentPaymentModel
	if err := conn(ctx, r.db).
		Where("shipment_id = ?", shipmentID).
		Order("payment_date ASC, created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]finance.ShipmentPayment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// FindAll finds payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.ShipmentPayment, error) {
	var paymentModels []models.ShipmentPaymentModel
	query := r.applyFilter(conn(ctx, r.db).Model(&models.ShipmentPaymentModel{}), filter)

	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]finance.ShipmentPayment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Count counts payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&models.ShipmentPaymentModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create appends a payment record
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.ShipmentPayment) error {
	model := models.ShipmentPaymentModelFromDomain(payment)
	return conn(ctx, r.db).Create(model).Error
}

// SumByShipment returns the authoritative SUM of amount_egp over all
// persisted payments for the shipment
func (r *GormPaymentRepository) SumByShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := conn(ctx, r.db).
		Model(&models.ShipmentPaymentModel{}).
		Where("shipment_id = ?", shipmentID).
		Select("COALESCE(SUM(amount_egp), 0)").
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// LastPaymentDate returns MAX(payment_date) for the shipment, nil when no
// payments exist
func (r *GormPaymentRepository) LastPaymentDate(ctx context.Context, shipmentID uuid.UUID) (*time.Time, error) {
	var last sql.NullTime
	if err := conn(ctx, r.db).
		Model(&models.ShipmentPaymentModel{}).
		Where("shipment_id = ?", shipmentID).
		Select("MAX(payment_date)").
		Scan(&last).Error; err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// CountByShipment counts payments recorded against one shipment
func (r *GormPaymentRepository) CountByShipment(ctx context.Context, shipmentID uuid.UUID) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.ShipmentPaymentModel{}).
		Where("shipment_id = ?", shipmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("payment_date DESC, created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receiver_name ILIKE ? OR reference_number ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "shipment_id":
			query = query.Where("shipment_id = ?", value)
		case "currency":
			query = query.Where("currency = ?", value)
		case "cost_component":
			query = query.Where("cost_component = ?", value)
		case "method":
			query = query.Where("method = ?", value)
		case "paid_after":
			query = query.Where("payment_date >= ?", value)
		case "paid_before":
			query = query.Where("payment_date <= ?", value)
		}
	}

	return query
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
