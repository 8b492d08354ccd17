package scheduler

import (
	"github.com/erp/stockcore/internal/infrastructure/config"
)

// ConfigFrom maps the reconciler settings onto a scheduler Config
func ConfigFrom(cfg config.ReconcilerConfig) Config {
	return Config{
		Enabled:      cfg.Enabled,
		Interval:     cfg.Interval,
		SweepTimeout: cfg.SweepTimeout,
	}
}
