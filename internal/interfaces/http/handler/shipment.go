package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appshipping "github.com/cargoledger/backend/internal/application/shipping"
	"github.com/cargoledger/backend/internal/domain/shipping"
	"github.com/cargoledger/backend/internal/interfaces/http/dto"
)

// ShipmentHandler exposes the shipment wizard over HTTP
type ShipmentHandler struct {
	BaseHandler
	shipments *appshipping.ShipmentService
}

// NewShipmentHandler creates a shipment handler
func NewShipmentHandler(shipments *appshipping.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments}
}

// ShipmentItemRequest is one purchase line in a create or update request.
// Money fields travel as decimal strings to avoid float rounding.
type ShipmentItemRequest struct {
	Description     string `json:"description" binding:"required,max=255"`
	Cartons         int64  `json:"cartons" binding:"required,min=1"`
	PiecesPerCarton int64  `json:"pieces_per_carton" binding:"required,min=1"`
	UnitPriceRmb    string `json:"unit_price_rmb" binding:"required,money"`
}

// CreateShipmentRequest opens a new shipment with its purchase items
type CreateShipmentRequest struct {
	Code         string                `json:"code" binding:"required,max=64"`
	Name         string                `json:"name" binding:"required,max=255"`
	SupplierID   string                `json:"supplier_id" binding:"required,uuid"`
	PurchaseDate string                `json:"purchase_date" binding:"required"`
	Items        []ShipmentItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateItemsRequest replaces the purchase item list
type UpdateItemsRequest struct {
	Items []ShipmentItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ShippingDetailsRequest records the freight step. Rates left empty are
// resolved from the latest stored exchange rate.
type ShippingDetailsRequest struct {
	CommissionRatePct     string  `json:"commission_rate_pct" binding:"required,money"`
	ShippingAreaSqm       string  `json:"shipping_area_sqm" binding:"required,money"`
	ShippingCostPerSqmUsd string  `json:"shipping_cost_per_sqm_usd" binding:"required,money"`
	UsdToRmbRate          *string `json:"usd_to_rmb_rate" binding:"omitempty,rate"`
	RmbToEgpRate          *string `json:"rmb_to_egp_rate" binding:"omitempty,rate"`
}

// ClearanceRateRequest carries customs and clearance per-carton rates for
// one item
type ClearanceRateRequest struct {
	ItemID                string `json:"item_id" binding:"required,uuid"`
	CustomsPerCartonEgp   string `json:"customs_per_carton_egp" binding:"required,money"`
	ClearancePerCartonEgp string `json:"clearance_per_carton_egp" binding:"required,money"`
}

// SaveClearanceRequest records the customs step for all items
type SaveClearanceRequest struct {
	Rates []ClearanceRateRequest `json:"rates" binding:"required,min=1,dive"`
}

func (r ShipmentItemRequest) toInput() (appshipping.ItemInput, error) {
	price, err := parseDecimal("unit_price_rmb", r.UnitPriceRmb)
	if err != nil {
		return appshipping.ItemInput{}, err
	}
	return appshipping.ItemInput{
		Description:     r.Description,
		Cartons:         r.Cartons,
		PiecesPerCarton: r.PiecesPerCarton,
		UnitPriceRmb:    price,
	}, nil
}

func toItemInputs(reqs []ShipmentItemRequest) ([]appshipping.ItemInput, error) {
	inputs := make([]appshipping.ItemInput, 0, len(reqs))
	for _, r := range reqs {
		in, err := r.toInput()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Create handles POST /shipments
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		h.BadRequest(c, "invalid supplier ID")
		return
	}
	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	items, err := toItemInputs(req.Items)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	shipment, err := h.shipments.Create(c.Request.Context(), appshipping.CreateShipmentRequest{
		Code:         req.Code,
		Name:         req.Name,
		SupplierID:   supplierID,
		PurchaseDate: purchaseDate,
		Items:        items,
		CreatedBy:    userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toShipmentResponse(shipment))
}

// List handles GET /shipments
func (h *ShipmentHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.shipments.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toShipmentListResponse(page.Items), page.Total, page.Page, page.PageSize)
}

// Get handles GET /shipments/:id
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}

	shipment, err := h.shipments.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toShipmentResponse(shipment))
}

// UpdateItems handles PUT /shipments/:id/items
func (h *ShipmentHandler) UpdateItems(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}

	var req UpdateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	items, err := toItemInputs(req.Items)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	shipment, err := h.shipments.UpdateItems(c.Request.Context(), id, items, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toShipmentResponse(shipment))
}

// ConfirmPurchase handles POST /shipments/:id/confirm
func (h *ShipmentHandler) ConfirmPurchase(c *gin.Context) {
	h.transition(c, h.shipments.ConfirmPurchase)
}

// MarkReceived handles POST /shipments/:id/receive
func (h *ShipmentHandler) MarkReceived(c *gin.Context) {
	h.transition(c, h.shipments.MarkReceived)
}

// Archive handles POST /shipments/:id/archive
func (h *ShipmentHandler) Archive(c *gin.Context) {
	h.transition(c, h.shipments.Archive)
}

func (h *ShipmentHandler) transition(c *gin.Context, fn func(ctx context.Context, shipmentID, updatedBy uuid.UUID) (*shipping.Shipment, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	shipment, err := fn(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toShipmentResponse(shipment))
}

// SaveShippingDetails handles PUT /shipments/:id/shipping
func (h *ShipmentHandler) SaveShippingDetails(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}

	var req ShippingDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	commission, err := parseDecimal("commission_rate_pct", req.CommissionRatePct)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	area, err := parseDecimal("shipping_area_sqm", req.ShippingAreaSqm)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	costPerSqm, err := parseDecimal("shipping_cost_per_sqm_usd", req.ShippingCostPerSqmUsd)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	usdToRmb, err := parseOptionalDecimal("usd_to_rmb_rate", req.UsdToRmbRate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	rmbToEgp, err := parseOptionalDecimal("rmb_to_egp_rate", req.RmbToEgpRate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	shipment, err := h.shipments.SaveShippingDetails(c.Request.Context(), id, appshipping.ShippingDetailsRequest{
		CommissionRatePct:     commission,
		ShippingAreaSqm:       area,
		ShippingCostPerSqmUsd: costPerSqm,
		UsdToRmbRate:          usdToRmb,
		RmbToEgpRate:          rmbToEgp,
		UpdatedBy:             userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toShipmentResponse(shipment))
}

// SaveClearance handles PUT /shipments/:id/clearance
func (h *ShipmentHandler) SaveClearance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}

	var req SaveClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	inputs := make([]appshipping.ClearanceRateInput, 0, len(req.Rates))
	for _, r := range req.Rates {
		itemID, err := uuid.Parse(r.ItemID)
		if err != nil {
			h.BadRequest(c, "invalid item ID")
			return
		}
		customs, err := parseDecimal("customs_per_carton_egp", r.CustomsPerCartonEgp)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		clearance, err := parseDecimal("clearance_per_carton_egp", r.ClearancePerCartonEgp)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		inputs = append(inputs, appshipping.ClearanceRateInput{
			ItemID:                itemID,
			CustomsPerCartonEgp:   customs,
			ClearancePerCartonEgp: clearance,
		})
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	shipment, err := h.shipments.SaveClearance(c.Request.Context(), id, inputs, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toShipmentResponse(shipment))
}

// Delete handles DELETE /shipments/:id
func (h *ShipmentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid shipment ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	if err := h.shipments.Delete(c.Request.Context(), id, userID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
