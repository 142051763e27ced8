package handler

import (
	"github.com/gin-gonic/gin"

	appfinance "github.com/cargoledger/backend/internal/application/finance"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/interfaces/http/dto"
)

// ExchangeRateHandler exposes the append-only exchange rate series
type ExchangeRateHandler struct {
	BaseHandler
	rates *appfinance.ExchangeRateService
}

// NewExchangeRateHandler creates an exchange rate handler
func NewExchangeRateHandler(rates *appfinance.ExchangeRateService) *ExchangeRateHandler {
	return &ExchangeRateHandler{rates: rates}
}

// CreateRateRequest appends a new rate row
type CreateRateRequest struct {
	RateDate     string `json:"rate_date" binding:"required"`
	FromCurrency string `json:"from_currency" binding:"required,oneof=EGP RMB USD"`
	ToCurrency   string `json:"to_currency" binding:"required,oneof=EGP RMB USD"`
	Rate         string `json:"rate" binding:"required,rate"`
	Source       string `json:"source" binding:"omitempty,oneof=MANUAL BANK MARKET"`
}

// LatestRateQuery selects a currency pair
type LatestRateQuery struct {
	From string `form:"from" binding:"required,oneof=EGP RMB USD"`
	To   string `form:"to" binding:"required,oneof=EGP RMB USD"`
}

// Create handles POST /rates
func (h *ExchangeRateHandler) Create(c *gin.Context) {
	var req CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	rateDate, err := parseDate(req.RateDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	rate, err := parseDecimal("rate", req.Rate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	source := finance.RateSource(req.Source)
	if req.Source == "" {
		source = finance.RateSourceManual
	}

	created, err := h.rates.Create(c.Request.Context(), appfinance.CreateRateRequest{
		RateDate:     rateDate,
		FromCurrency: valueobject.Currency(req.FromCurrency),
		ToCurrency:   valueobject.Currency(req.ToCurrency),
		Rate:         rate,
		Source:       source,
		CreatedBy:    userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toExchangeRateResponse(created))
}

// Latest handles GET /rates/latest
func (h *ExchangeRateHandler) Latest(c *gin.Context) {
	var q LatestRateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rate, err := h.rates.Latest(c.Request.Context(), valueobject.Currency(q.From), valueobject.Currency(q.To))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toExchangeRateResponse(rate))
}

// List handles GET /rates
func (h *ExchangeRateHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.rates.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toExchangeRateListResponse(page.Items), page.Total, page.Page, page.PageSize)
}
