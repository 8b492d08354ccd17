package handler

import (
	"net/http"
	"time"

	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/interfaces/http/dto"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// DatabaseChecker is the slice of persistence.Database the health check uses
type DatabaseChecker interface {
	Ping() error
	Stats() (persistence.ConnectionStats, error)
}

// SchedulerStatus reports whether the sweep loop is running
type SchedulerStatus interface {
	IsRunning() bool
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	db        DatabaseChecker
	scheduler SchedulerStatus
	started   time.Time
}

// NewHealthHandler creates a new HealthHandler. scheduler may be nil.
func NewHealthHandler(db DatabaseChecker, scheduler SchedulerStatus) *HealthHandler {
	return &HealthHandler{db: db, scheduler: scheduler, started: time.Now()}
}

// Routes returns the health route group
func (h *HealthHandler) Routes() []router.RouteRegistrar {
	return []router.RouteRegistrar{
		router.NewDomainGroup("health", "/health").
			GET("", h.Live).
			GET("/ready", h.Ready),
	}
}

// HealthResponse is the body of both checks
type HealthResponse struct {
	Status    string                       `json:"status"`
	Uptime    string                       `json:"uptime"`
	Database  string                       `json:"database,omitempty"`
	Pool      *persistence.ConnectionStats `json:"pool,omitempty"`
	Scheduler string                       `json:"scheduler,omitempty"`
}

// Live handles GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, HealthResponse{Status: "ok", Uptime: time.Since(h.started).Round(time.Second).String()})
}

// Ready handles GET /health/ready, answering 503 when the database is down
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Uptime: time.Since(h.started).Round(time.Second).String(), Database: "up"}
	if h.scheduler != nil {
		resp.Scheduler = "stopped"
		if h.scheduler.IsRunning() {
			resp.Scheduler = "running"
		}
	}

	if err := h.db.Ping(); err != nil {
		resp.Status = "unavailable"
		resp.Database = "down"
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeUnavailable, Message: "Database unreachable"},
		})
		return
	}
	if stats, err := h.db.Stats(); err == nil {
		resp.Pool = &stats
	}
	h.Success(c, resp)
}
