package handler

import (
	"strconv"

	alertapp "github.com/erp/stockcore/internal/application/alert"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// AlertHandler serves low stock alerts and on-demand sweeps
type AlertHandler struct {
	BaseHandler
	service *alertapp.LowStockService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(service *alertapp.LowStockService) *AlertHandler {
	return &AlertHandler{service: service}
}

// Routes returns the alert route group
func (h *AlertHandler) Routes() []router.RouteRegistrar {
	alerts := router.NewDomainGroup("low-stock-alerts", "/low-stock-alerts").
		GET("", h.List).
		POST("/sweep", h.Sweep).
		GET("/:item_id", h.Get)
	return []router.RouteRegistrar{alerts}
}

// Sweep handles POST /low-stock-alerts/sweep by running a sweep inline. A
// sweep held by another instance returns skipped=true.
func (h *AlertHandler) Sweep(c *gin.Context) {
	result, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// List handles GET /low-stock-alerts?resolved=
func (h *AlertHandler) List(c *gin.Context) {
	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "resolved must be true or false")
			return
		}
		resolved = &v
	}
	alerts, err := h.service.ListAlerts(c.Request.Context(), resolved)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alerts)
}

// Get handles GET /low-stock-alerts/:item_id
func (h *AlertHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseUUIDParam(c, "item_id")
	if !ok {
		return
	}
	a, err := h.service.GetAlert(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}
