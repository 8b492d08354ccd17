package handler

import (
	"time"

	stockapp "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/interfaces/http/dto"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// LedgerHandler serves read access to stock movements
type LedgerHandler struct {
	BaseHandler
	service *stockapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *stockapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// Routes returns the ledger route groups
func (h *LedgerHandler) Routes() []router.RouteRegistrar {
	movements := router.NewDomainGroup("stock-movements", "/stock-movements").
		GET("", h.List).
		GET("/summary", h.Summary)

	reconcile := router.NewDomainGroup("stock-reconcile", "/locations/:location_id/stock").
		GET("/:item_id/reconcile", h.Reconcile)

	return []router.RouteRegistrar{movements, reconcile}
}

type summaryQuery struct {
	From *time.Time `form:"from"`
	To   *time.Time `form:"to"`
}

// List handles GET /stock-movements. Exactly one selector is used, checked
// in order: reference_type with reference_id, item_id, location_id.
func (h *LedgerHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if refType := c.Query("reference_type"); refType != "" {
		refID, ok := h.parseUUIDQuery(c, "reference_id")
		if !ok {
			return
		}
		if refID == nil {
			h.BadRequest(c, "reference_id is required with reference_type")
			return
		}
		rows, err := h.service.ListByReference(ctx, stock.ReferenceType(refType), *refID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, rows)
		return
	}

	var q dto.ListRequest
	if !h.BindQuery(c, &q) {
		return
	}
	itemID, ok := h.parseUUIDQuery(c, "item_id")
	if !ok {
		return
	}
	locationID, ok := h.parseUUIDQuery(c, "location_id")
	if !ok {
		return
	}

	switch {
	case itemID != nil:
		page, err := h.service.ListByItem(ctx, *itemID, q.Filter())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		writePage(c, page)
	case locationID != nil:
		page, err := h.service.ListByLocation(ctx, *locationID, q.Filter())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		writePage(c, page)
	default:
		h.BadRequest(c, "One of item_id, location_id or reference_type is required")
	}
}

// Summary handles GET /stock-movements/summary
func (h *LedgerHandler) Summary(c *gin.Context) {
	var q summaryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := stock.MovementFilter{From: q.From, To: q.To}
	var ok bool
	if filter.LocationID, ok = h.parseUUIDQuery(c, "location_id"); !ok {
		return
	}
	if filter.ItemID, ok = h.parseUUIDQuery(c, "item_id"); !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Reconcile handles GET /locations/:location_id/stock/:item_id/reconcile
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	locationID, ok := h.ParseUUIDParam(c, "location_id")
	if !ok {
		return
	}
	itemID, ok := h.ParseUUIDParam(c, "item_id")
	if !ok {
		return
	}
	result, err := h.service.Reconcile(c.Request.Context(), locationID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
