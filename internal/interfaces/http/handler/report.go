package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreport "github.com/cargoledger/backend/internal/application/report"
	"github.com/cargoledger/backend/internal/domain/report"
)

// ReportHandler exposes the accounting read models over HTTP
type ReportHandler struct {
	BaseHandler
	reports *appreport.ReportService
}

// NewReportHandler creates a report handler
func NewReportHandler(reports *appreport.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StatementQueryRequest bounds a supplier statement to a date range
type StatementQueryRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// MovementQueryRequest scopes the movement ledger
type MovementQueryRequest struct {
	ShipmentID string `form:"shipment_id" binding:"omitempty,uuid"`
	From       string `form:"from"`
	To         string `form:"to"`
}

// Dashboard handles GET /reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	summary, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// SupplierBalances handles GET /reports/supplier-balances
func (h *ReportHandler) SupplierBalances(c *gin.Context) {
	balances, err := h.reports.SupplierBalances(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, balances)
}

// SupplierStatement handles GET /reports/suppliers/:id/statement
func (h *ReportHandler) SupplierStatement(c *gin.Context) {
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid supplier ID")
		return
	}

	var q StatementQueryRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}
	from, err := parseDate(q.From)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	to, err := parseDate(q.To)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	statement, err := h.reports.SupplierStatement(c.Request.Context(), report.StatementQuery{
		SupplierID: supplierID,
		From:       from,
		To:         to,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, statement)
}

// MovementLedger handles GET /reports/movements
func (h *ReportHandler) MovementLedger(c *gin.Context) {
	var q MovementQueryRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}

	var query report.MovementQuery
	if q.ShipmentID != "" {
		id, err := uuid.Parse(q.ShipmentID)
		if err != nil {
			h.BadRequest(c, "invalid shipment ID")
			return
		}
		query.ShipmentID = &id
	}
	if q.From != "" {
		from, err := parseDate(q.From)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		query.From = &from
	}
	if q.To != "" {
		to, err := parseDate(q.To)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		query.To = &to
	}

	lines, err := h.reports.MovementLedger(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, lines)
}
