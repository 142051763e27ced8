package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/infrastructure/persistence/models"
)

// GormExchangeRateRepository implements ExchangeRateRepository using GORM.
// The rate table is an append-only time series.
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// FindByID finds an exchange rate by its ID
func (r *GormExchangeRateRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ExchangeRate, error) {
	var model models.ExchangeRateModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLatest returns the newest rate by rate date for the pair
func (r *GormExchangeRateRepository) FindLatest(ctx context.Context, from, to valueobject.Currency) (*finance.ExchangeRate, error) {
	var model models.ExchangeRateModel
	if err := conn(ctx, r.db).
		Where("from_currency = ? AND to_currency = ?", from, to).
		Order("rate_date DESC, created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds exchange rates matching the filter
func (r *GormExchangeRateRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.ExchangeRate, error) {
	var rateModels []models.ExchangeRateModel
	query := r.applyFilter(conn(ctx, r.db).Model(&models.ExchangeRateModel{}), filter)

	if err := query.Find(&rateModels).Error; err != nil {
		return nil, err
	}
	rates := make([]finance.ExchangeRate, len(rateModels))
	for i, model := range rateModels {
		rates[i] = *model.ToDomain()
	}
	return rates, nil
}

// Count counts exchange rates matching the filter
func (r *GormExchangeRateRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&models.ExchangeRateModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create appends a rate to the time series
func (r *GormExchangeRateRepository) Create(ctx context.Context, rate *finance.ExchangeRate) error {
	model := models.ExchangeRateModelFromDomain(rate)
	return conn(ctx, r.db).Create(model).Error
}

// applyFilter applies filter options to the query
func (r *GormExchangeRateRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("rate_date DESC, created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormExchangeRateRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "from_currency":
			query = query.Where("from_currency = ?", value)
		case "to_currency":
			query = query.Where("to_currency = ?", value)
		case "source":
			query = query.Where("source = ?", value)
		case "dated_after":
			query = query.Where("rate_date >= ?", value)
		case "dated_before":
			query = query.Where("rate_date <= ?", value)
		}
	}

	return query
}

// Ensure GormExchangeRateRepository implements ExchangeRateRepository
var _ finance.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
