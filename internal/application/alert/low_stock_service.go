package alert

import (
	"context"
	"errors"
	"time"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/alert"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrSweepInProgress is returned by a SweepLocker when another instance
// holds the sweep lock.
var ErrSweepInProgress = errors.New("low stock sweep already in progress")

// SweepLocker guards a sweep across instances. Obtain returns a release func.
type SweepLocker interface {
	Obtain(ctx context.Context) (func(), error)
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Checked   int  `json:"checked"`
	Inserted  int  `json:"inserted"`
	Reopened  int  `json:"reopened"`
	Resolved  int  `json:"resolved"`
	Refreshed int  `json:"refreshed"`
	Skipped   bool `json:"skipped,omitempty"`
}

// Writes returns the number of rows the sweep changed
func (r SweepResult) Writes() int {
	return r.Inserted + r.Reopened + r.Resolved + r.Refreshed
}

// AlertResponse represents a low stock alert in API responses
type AlertResponse struct {
	ID                uuid.UUID       `json:"id"`
	ItemID            uuid.UUID       `json:"item_id"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	MinStockThreshold decimal.Decimal `json:"min_stock_threshold"`
	Resolved          bool            `json:"resolved"`
	Notes             string          `json:"notes,omitempty"`
	AlertCreatedAt    time.Time       `json:"alert_created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toAlertResponse(a *alert.LowStockAlert) AlertResponse {
	return AlertResponse{
		ID:                a.ID,
		ItemID:            a.ItemID,
		CurrentStock:      a.CurrentStock,
		MinStockThreshold: a.MinStockThreshold,
		Resolved:          a.Resolved,
		Notes:             a.Notes,
		AlertCreatedAt:    a.AlertCreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// LowStockService keeps exactly one alert row per active item in step with
// the item's cached stock. Sweeps are idempotent and safe to run concurrently:
// every write is conditional on the state it was decided from.
type LowStockService struct {
	repos  appshared.Repositories
	locker SweepLocker
	logger *zap.Logger
}

// NewLowStockService creates a new LowStockService
func NewLowStockService(repos appshared.Repositories, logger *zap.Logger) *LowStockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockService{repos: repos, logger: logger}
}

// SetLocker installs an optional cross-instance lock
func (s *LowStockService) SetLocker(locker SweepLocker) {
	s.locker = locker
}

// Sweep reconciles every active item against its alert row
func (s *LowStockService) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "low_stock", "sweep")
	defer span.End()

	var result SweepResult
	if s.locker != nil {
		release, err := s.locker.Obtain(ctx)
		switch {
		case errors.Is(err, ErrSweepInProgress):
			s.logger.Debug("low stock sweep skipped, lock held elsewhere")
			result.Skipped = true
			if m := telemetry.Stock(); m != nil {
				m.RecordSweep(ctx, 0, true)
			}
			return result, nil
		case err != nil:
			s.logger.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		default:
			defer release()
		}
	}

	items, err := s.repos.Items().FindActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}

	for i := range items {
		item := &items[i]
		result.Checked++

		existing, err := s.repos.Alerts().FindByItemID(ctx, item.ID)
		if err != nil && !shared.IsNotFound(err) {
			telemetry.RecordError(span, err)
			return result, err
		}

		var changed bool
		switch alert.Decide(item, existing) {
		case alert.ActionInsert:
			changed, err = s.repos.Alerts().InsertIfAbsent(ctx, alert.NewFromItem(item))
			if changed {
				result.Inserted++
			}
		case alert.ActionReopen:
			changed, err = s.repos.Alerts().SetResolved(ctx, item.ID, false, item.StockQuantity, item.MinStock)
			if changed {
				result.Reopened++
			}
		case alert.ActionResolve:
			changed, err = s.repos.Alerts().SetResolved(ctx, item.ID, true, item.StockQuantity, item.MinStock)
			if changed {
				result.Resolved++
			}
		case alert.ActionRefresh:
			changed, err = s.repos.Alerts().RefreshSnapshot(ctx, item.ID, item.StockQuantity, item.MinStock)
			if changed {
				result.Refreshed++
			}
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return result, err
		}
	}

	telemetry.SetAttributes(span,
		"checked", result.Checked,
		"writes", result.Writes(),
	)
	if m := telemetry.Stock(); m != nil {
		m.RecordSweep(ctx, result.Writes(), false)
	}
	if result.Writes() > 0 {
		s.logger.Info("low stock sweep finished",
			zap.Int("checked", result.Checked),
			zap.Int("inserted", result.Inserted),
			zap.Int("reopened", result.Reopened),
			zap.Int("resolved", result.Resolved),
			zap.Int("refreshed", result.Refreshed),
		)
	}
	return result, nil
}

// ListAlerts returns alert rows, optionally filtered by resolved
func (s *LowStockService) ListAlerts(ctx context.Context, resolved *bool) ([]AlertResponse, error) {
	alerts, err := s.repos.Alerts().FindAll(ctx, resolved)
	if err != nil {
		return nil, err
	}
	out := make([]AlertResponse, len(alerts))
	for i := range alerts {
		out[i] = toAlertResponse(&alerts[i])
	}
	return out, nil
}

// GetAlert returns the alert row of one item
func (s *LowStockService) GetAlert(ctx context.Context, itemID uuid.UUID) (*AlertResponse, error) {
	a, err := s.repos.Alerts().FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	resp := toAlertResponse(a)
	return &resp, nil
}
