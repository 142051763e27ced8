package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appfinance "github.com/cargoledger/backend/internal/application/finance"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared/valueobject"
	"github.com/cargoledger/backend/internal/interfaces/http/dto"
)

// PaymentHandler exposes payment settlement over HTTP
type PaymentHandler struct {
	BaseHandler
	settlements *appfinance.SettlementService
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(settlements *appfinance.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlements: settlements}
}

// RecordPaymentRequest books a payment against a shipment. The exchange
// rate is required for non-EGP currencies and forbidden for EGP.
type RecordPaymentRequest struct {
	ShipmentID      string  `json:"shipment_id" binding:"required,uuid"`
	PaymentDate     string  `json:"payment_date" binding:"required"`
	Currency        string  `json:"currency" binding:"required,oneof=EGP RMB USD"`
	AmountOriginal  string  `json:"amount_original" binding:"required,money"`
	ExchangeRate    *string `json:"exchange_rate" binding:"omitempty,rate"`
	CostComponent   string  `json:"cost_component" binding:"omitempty,oneof=PURCHASE COMMISSION SHIPPING CUSTOMS CLEARANCE GENERAL"`
	Method          string  `json:"method" binding:"omitempty,oneof=CASH BANK_TRANSFER INSTAPAY OTHER"`
	ReceiverName    string  `json:"receiver_name" binding:"max=255"`
	ReferenceNumber string  `json:"reference_number" binding:"max=128"`
	Note            string  `json:"note" binding:"max=1000"`
}

// Record handles POST /payments
func (h *PaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	shipmentID, err := uuid.Parse(req.ShipmentID)
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	amount, err := parseDecimal("amount_original", req.AmountOriginal)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	rate, err := parseOptionalDecimal("exchange_rate", req.ExchangeRate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	result, err := h.settlements.RecordPayment(c.Request.Context(), appfinance.RecordPaymentRequest{
		ShipmentID:      shipmentID,
		PaymentDate:     paymentDate,
		Currency:        currency,
		AmountOriginal:  amount,
		ExchangeRate:    rate,
		CostComponent:   finance.CostComponent(req.CostComponent),
		Method:          finance.PaymentMethod(req.Method),
		ReceiverName:    req.ReceiverName,
		ReferenceNumber: req.ReferenceNumber,
		Note:            req.Note,
		CreatedBy:       userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, RecordPaymentResponse{
		Payment:         toPaymentResponse(result.Payment),
		TotalPaidEgp:    result.TotalPaidEgp.StringFixed(valueobject.MoneyScale),
		BalanceEgp:      result.BalanceEgp.StringFixed(valueobject.MoneyScale),
		RemainingBefore: result.RemainingBefore.StringFixed(valueobject.MoneyScale),
		PaymentState:    string(result.PaymentState),
	})
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.settlements.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentListResponse(page.Items), page.Total, page.Page, page.PageSize)
}

// ListByShipment handles GET /shipments/:id/payments
func (h *PaymentHandler) ListByShipment(c *gin.Context) {
	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}

	payments, err := h.settlements.ListByShipment(c.Request.Context(), shipmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentListResponse(payments))
}
