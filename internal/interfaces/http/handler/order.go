package handler

import (
	orderapp "github.com/erp/stockcore/internal/application/order"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// OrderHandler serves order fulfilment
type OrderHandler struct {
	BaseHandler
	service *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Routes returns the order route group
func (h *OrderHandler) Routes() []router.RouteRegistrar {
	orders := router.NewDomainGroup("orders", "/orders").
		POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.Get).
		PATCH("/:id", h.UpdateStatus).
		PUT("/:id/items", h.ReplaceItems).
		DELETE("/:id", h.Delete)
	return []router.RouteRegistrar{orders}
}

// Create handles POST /orders. A shortage rejects the whole order with 422.
func (h *OrderHandler) Create(c *gin.Context) {
	var req orderapp.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, o)
}

// UpdateStatus handles PATCH /orders/:id. Moving to approved deducts stock.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// ReplaceItems handles PUT /orders/:id/items
func (h *OrderHandler) ReplaceItems(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.ReplaceItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.ReplaceItems(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Delete handles DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// List handles GET /orders?status=&location_id=
func (h *OrderHandler) List(c *gin.Context) {
	var f orderapp.ListFilter
	if !h.BindQuery(c, &f) {
		return
	}
	var ok bool
	if f.LocationID, ok = h.parseUUIDQuery(c, "location_id"); !ok {
		return
	}
	page, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}
