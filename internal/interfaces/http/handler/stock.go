package handler

import (
	stockapp "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/interfaces/http/dto"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// StockHandler serves per-location balances
type StockHandler struct {
	BaseHandler
	service *stockapp.Service
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *stockapp.Service) *StockHandler {
	return &StockHandler{service: service}
}

// Routes returns the stock route groups
func (h *StockHandler) Routes() []router.RouteRegistrar {
	availability := router.NewDomainGroup("availability", "/stock-availability-check").
		POST("", h.CheckAvailability)

	balances := router.NewDomainGroup("location-stock", "/locations/:location_id/stock").
		GET("", h.ListByLocation).
		PATCH("/bulk", h.BulkUpdate).
		POST("/bulk", h.BulkCreate).
		GET("/:item_id", h.Get).
		PATCH("/:item_id/quantity", h.Adjust).
		PATCH("/:item_id/thresholds", h.SetThresholds)

	return []router.RouteRegistrar{availability, balances}
}

// CheckAvailability handles POST /stock-availability-check
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	var req stockapp.AvailabilityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Adjust handles PATCH /locations/:location_id/stock/:item_id/quantity
func (h *StockHandler) Adjust(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	itemID, ok := h.ParseUUIDParam(c, "item_id")
	if !ok {
		return
	}
	var req stockapp.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}
	row, err := h.service.Adjust(c.Request.Context(), locationID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, row)
}

// SetThresholds handles PATCH /locations/:location_id/stock/:item_id/thresholds
func (h *StockHandler) SetThresholds(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	itemID, ok := h.ParseUUIDParam(c, "item_id")
	if !ok {
		return
	}
	var req stockapp.ThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	row, err := h.service.SetThresholds(c.Request.Context(), locationID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, row)
}

// BulkUpdate handles PATCH /locations/:location_id/stock/bulk. Partial
// failures are reported in the body with a 200.
func (h *StockHandler) BulkUpdate(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	var req stockapp.BulkUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.BulkUpdate(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkCreate handles POST /locations/:location_id/stock/bulk
func (h *StockHandler) BulkCreate(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	var req stockapp.BulkCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.BulkCreate(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /locations/:location_id/stock/:item_id
func (h *StockHandler) Get(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	itemID, ok := h.ParseUUIDParam(c, "item_id")
	if !ok {
		return
	}
	row, err := h.service.Get(c.Request.Context(), locationID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, row)
}

// ListByLocation handles GET /locations/:location_id/stock
func (h *StockHandler) ListByLocation(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	var q dto.ListRequest
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.service.ListByLocation(c.Request.Context(), locationID, q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}
