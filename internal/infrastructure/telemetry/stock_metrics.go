package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// StockMetrics counts ledger writes, shortages and reconciler activity
type StockMetrics struct {
	movements   *Counter
	shortages   *Counter
	sweepWrites *Counter
	sweeps      *Counter
}

// NewStockMetrics creates the stock instruments on meter
func NewStockMetrics(meter metric.Meter) (*StockMetrics, error) {
	var (
		m   StockMetrics
		err error
	)
	if m.movements, err = NewCounter(meter, "stock_movements_total", "Ledger entries written", "{movements}"); err != nil {
		return nil, err
	}
	if m.shortages, err = NewCounter(meter, "stock_shortages_total", "Requests rejected for insufficient stock", "{requests}"); err != nil {
		return nil, err
	}
	if m.sweepWrites, err = NewCounter(meter, "low_stock_sweep_writes_total", "Alert rows changed by sweeps", "{rows}"); err != nil {
		return nil, err
	}
	if m.sweeps, err = NewCounter(meter, "low_stock_sweeps_total", "Sweeps run", "{sweeps}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordMovement counts one ledger entry
func (m *StockMetrics) RecordMovement(ctx context.Context, movementType, quantityType string) {
	m.movements.Add(ctx, 1, metric.WithAttributes(
		attribute.String("movement_type", movementType),
		attribute.String("quantity_type", quantityType),
	))
}

// RecordShortage counts one rejected request with the number of short items
func (m *StockMetrics) RecordShortage(ctx context.Context, items int) {
	m.shortages.Add(ctx, 1, metric.WithAttributes(attribute.Int("items", items)))
}

// RecordSweep counts a finished sweep and the rows it changed
func (m *StockMetrics) RecordSweep(ctx context.Context, writes int, skipped bool) {
	m.sweeps.Add(ctx, 1, metric.WithAttributes(attribute.Bool("skipped", skipped)))
	if writes > 0 {
		m.sweepWrites.Add(ctx, int64(writes))
	}
}

var (
	defaultMetrics     *StockMetrics
	defaultMetricsOnce sync.Once
)

// Stock returns the instruments bound to the global meter provider. The
// global provider delegates, so instruments created before the SDK provider
// is installed still export. Returns nil if creation failed.
func Stock() *StockMetrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, _ = NewStockMetrics(otel.Meter(TracerName))
	})
	return defaultMetrics
}

// OpenAlertCounter reports how many low stock alerts are unresolved
type OpenAlertCounter interface {
	CountOpenAlerts(ctx context.Context) (int64, error)
}

// RegisterOpenAlertsGauge exposes the number of open alerts as an observable gauge
func RegisterOpenAlertsGauge(meter metric.Meter, counter OpenAlertCounter) error {
	_, err := meter.Int64ObservableGauge("low_stock_open_alerts",
		metric.WithDescription("Unresolved low stock alerts"),
		metric.WithUnit("{alerts}"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			n, err := counter.CountOpenAlerts(ctx)
			if err != nil {
				return err
			}
			o.Observe(n)
			return nil
		}),
	)
	return err
}

// GormOpenAlertCounter counts open alerts straight from low_stock_alerts
type GormOpenAlertCounter struct {
	db *gorm.DB
}

// NewGormOpenAlertCounter creates a new GormOpenAlertCounter
func NewGormOpenAlertCounter(db *gorm.DB) *GormOpenAlertCounter {
	return &GormOpenAlertCounter{db: db}
}

// CountOpenAlerts implements OpenAlertCounter
func (c *GormOpenAlertCounter) CountOpenAlerts(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Table("low_stock_alerts").Where("resolved = ?", false).Count(&n).Error
	return n, err
}
