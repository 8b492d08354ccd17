package handler

import (
	"context"
	"net/http"

	supplyapp "github.com/erp/stockcore/internal/application/supply"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SupplyHandler serves the requisition, purchase order, GRN, purchase entry
// and stock transfer workflows
type SupplyHandler struct {
	BaseHandler
	service *supplyapp.WorkflowService
}

// NewSupplyHandler creates a new SupplyHandler
func NewSupplyHandler(service *supplyapp.WorkflowService) *SupplyHandler {
	return &SupplyHandler{service: service}
}

// Routes returns one route group per workflow document
func (h *SupplyHandler) Routes() []router.RouteRegistrar {
	s := h.service

	requisitions := router.NewDomainGroup("requisitions", "/requisitions").
		POST("", create(h, s.CreateRequisition)).
		GET("", list(h, s.ListRequisitions)).
		GET("/:id", get(h, s.GetRequisition)).
		PATCH("/:id", update(h, s.UpdateRequisition)).
		DELETE("/:id", h.deleteRequisition).
		POST("/:id/approve", transition(h, s.ApproveRequisition)).
		POST("/:id/receive", transition(h, s.ReceiveRequisition)).
		POST("/:id/cancel", get(h, s.CancelRequisition))

	purchaseOrders := router.NewDomainGroup("purchase-orders", "/purchase-orders").
		POST("", create(h, s.CreatePurchaseOrder)).
		POST("/from-requisition", create(h, s.CreatePurchaseOrderFromRequisition)).
		POST("/consolidated", create(h, s.CreateConsolidatedPurchaseOrder)).
		GET("", list(h, s.ListPurchaseOrders)).
		GET("/:id", get(h, s.GetPurchaseOrder)).
		PATCH("/:id", update(h, s.UpdatePurchaseOrder)).
		POST("/:id/approve", transition(h, s.ApprovePurchaseOrder)).
		POST("/:id/order", get(h, s.MarkPurchaseOrderOrdered)).
		POST("/:id/cancel", get(h, s.CancelPurchaseOrder))

	grns := router.NewDomainGroup("grns", "/grns").
		POST("", create(h, s.CreateGRN)).
		POST("/from-po", create(h, s.CreateGRNFromPO)).
		GET("", list(h, s.ListGRNs)).
		GET("/:id", get(h, s.GetGRN))

	entries := router.NewDomainGroup("purchase-entries", "/purchase-entries").
		POST("", create(h, s.CreatePurchaseEntry)).
		POST("/from-grn", create(h, s.CreatePurchaseEntryFromGRN)).
		POST("/from-po", create(h, s.CreatePurchaseEntryFromPO)).
		GET("", list(h, s.ListPurchaseEntries)).
		GET("/:id", get(h, s.GetPurchaseEntry)).
		POST("/:id/payments", update(h, s.RecordPayment))

	transfers := router.NewDomainGroup("stock-transfers", "/stock-transfers").
		POST("", create(h, s.CreateTransfer)).
		POST("/from-grn", create(h, s.CreateTransferFromGRN)).
		POST("/from-purchase-entry", create(h, s.CreateTransferFromPurchaseEntry)).
		POST("/from-requisition", create(h, s.CreateTransferFromRequisition)).
		POST("/from-po", create(h, s.CreateTransfersFromPO)).
		GET("", list(h, s.ListTransfers)).
		GET("/:id", get(h, s.GetTransfer)).
		POST("/:id/approve", transition(h, s.ApproveTransfer)).
		POST("/:id/dispatch", transition(h, s.DispatchTransfer)).
		POST("/:id/in-transit", get(h, s.MarkTransferInTransit)).
		POST("/:id/receive", transition(h, s.ReceiveTransfer)).
		POST("/:id/cancel", get(h, s.CancelTransfer))

	return []router.RouteRegistrar{requisitions, purchaseOrders, grns, entries, transfers}
}

func (h *SupplyHandler) deleteRequisition(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRequisition(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// create binds a body, calls fn and answers 201
func create[Req, Resp any](h *SupplyHandler, fn func(context.Context, Req) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if !h.BindJSON(c, &req) {
			return
		}
		resp, err := fn(c.Request.Context(), req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, resp)
	}
}

// get calls fn with the :id path parameter
func get[Resp any](h *SupplyHandler, fn func(context.Context, uuid.UUID) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.ParseUUIDParam(c, "id")
		if !ok {
			return
		}
		resp, err := fn(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}

// update calls fn with :id and a required body
func update[Req, Resp any](h *SupplyHandler, fn func(context.Context, uuid.UUID, Req) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.ParseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req Req
		if !h.BindJSON(c, &req) {
			return
		}
		resp, err := fn(c.Request.Context(), id, req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}

// transition calls fn with :id and an optional body; an empty body means
// the zero request
func transition[Req, Resp any](h *SupplyHandler, fn func(context.Context, uuid.UUID, Req) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.ParseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req Req
		if c.Request.ContentLength != 0 && c.Request.Body != http.NoBody {
			if !h.BindJSON(c, &req) {
				return
			}
		}
		resp, err := fn(c.Request.Context(), id, req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}

// list binds status and pagination from the query plus location_id
func list[T any](h *SupplyHandler, fn func(context.Context, supplyapp.ListFilter) (shared.Paginated[T], error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f supplyapp.ListFilter
		if !h.BindQuery(c, &f) {
			return
		}
		var ok bool
		if f.LocationID, ok = h.parseUUIDQuery(c, "location_id"); !ok {
			return
		}
		page, err := fn(c.Request.Context(), f)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		writePage(c, page)
	}
}
