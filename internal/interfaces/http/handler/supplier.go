package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apppartner "github.com/cargoledger/backend/internal/application/partner"
	"github.com/cargoledger/backend/internal/interfaces/http/dto"
)

// SupplierHandler exposes supplier master data over HTTP
type SupplierHandler struct {
	BaseHandler
	suppliers *apppartner.SupplierService
}

// NewSupplierHandler creates a supplier handler
func NewSupplierHandler(suppliers *apppartner.SupplierService) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers}
}

// CreateSupplierRequest registers a new supplier
type CreateSupplierRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	ContactName string `json:"contact_name" binding:"max=255"`
	Phone       string `json:"phone" binding:"max=64"`
	Email       string `json:"email" binding:"omitempty,email"`
	Address     string `json:"address" binding:"max=500"`
	Notes       string `json:"notes" binding:"max=1000"`
}

// UpdateSupplierRequest changes supplier master data
type UpdateSupplierRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	ContactName string `json:"contact_name" binding:"max=255"`
	Phone       string `json:"phone" binding:"max=64"`
	Email       string `json:"email" binding:"omitempty,email"`
	Address     string `json:"address" binding:"max=500"`
	Notes       string `json:"notes" binding:"max=1000"`
}

// SetActiveRequest toggles the active flag
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Create handles POST /suppliers
func (h *SupplierHandler) Create(c *gin.Context) {
	var req CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	supplier, err := h.suppliers.Create(c.Request.Context(), apppartner.CreateSupplierRequest{
		Name:        req.Name,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Notes:       req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toSupplierResponse(supplier))
}

// Get handles GET /suppliers/:id
func (h *SupplierHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid supplier ID")
		return
	}

	supplier, err := h.suppliers.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSupplierResponse(supplier))
}

// List handles GET /suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.suppliers.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toSupplierListResponse(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /suppliers/:id
func (h *SupplierHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid supplier ID")
		return
	}

	var req UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	supplier, err := h.suppliers.Update(c.Request.Context(), id, apppartner.UpdateSupplierRequest{
		Name:        req.Name,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Notes:       req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSupplierResponse(supplier))
}

// SetActive handles PATCH /suppliers/:id/active
func (h *SupplierHandler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid supplier ID")
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	supplier, err := h.suppliers.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSupplierResponse(supplier))
}

// Delete handles DELETE /suppliers/:id
func (h *SupplierHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid supplier ID")
		return
	}

	if err := h.suppliers.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
