package scheduler

import (
	"context"
	"sync"
	"time"

	appalert "github.com/erp/stockcore/internal/application/alert"
	"go.uber.org/zap"
)

// Sweeper runs one low stock reconciliation pass
type Sweeper interface {
	Sweep(ctx context.Context) (appalert.SweepResult, error)
}

// ErrorHandler receives sweep failures. It runs on the scheduler goroutine.
type ErrorHandler func(err error)

// Config holds scheduler configuration
type Config struct {
	Enabled      bool
	Interval     time.Duration
	SweepTimeout time.Duration
}

// DefaultConfig returns an hourly schedule
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Interval:     time.Hour,
		SweepTimeout: 5 * time.Minute,
	}
}

// Option configures a LowStockScheduler
type Option func(*LowStockScheduler)

// WithErrorHandler replaces the default error handler, which logs the failure
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *LowStockScheduler) {
		if h != nil {
			s.onError = h
		}
	}
}

// LowStockScheduler runs sweeps on a ticker and on demand. Requests made
// while a sweep is queued or running collapse into a single follow-up sweep.
type LowStockScheduler struct {
	config  Config
	sweeper Sweeper
	logger  *zap.Logger
	onError ErrorHandler

	requests  chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewLowStockScheduler creates a stopped scheduler
func NewLowStockScheduler(config Config, sweeper Sweeper, logger *zap.Logger, opts ...Option) *LowStockScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = DefaultConfig().SweepTimeout
	}
	s := &LowStockScheduler{
		config:   config,
		sweeper:  sweeper,
		logger:   logger,
		requests: make(chan struct{}, 1),
	}
	s.onError = func(err error) {
		s.logger.Error("low stock sweep failed", zap.Error(err))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the sweep loop and queues an initial sweep. A disabled
// scheduler accepts triggers but never sweeps.
func (s *LowStockScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning || !s.config.Enabled {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)
	s.Trigger()

	s.logger.Info("low stock scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("sweep_timeout", s.config.SweepTimeout),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx
func (s *LowStockScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("low stock scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("low stock scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger requests a sweep without blocking
func (s *LowStockScheduler) Trigger() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// IsRunning reports whether the loop is active
func (s *LowStockScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *LowStockScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx, "interval")
		case <-s.requests:
			s.runSweep(ctx, "trigger")
		}
	}
}

func (s *LowStockScheduler) runSweep(ctx context.Context, reason string) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.sweeper.Sweep(sweepCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.onError(err)
		return
	}
	s.logger.Debug("low stock sweep done",
		zap.String("reason", reason),
		zap.Int("checked", result.Checked),
		zap.Int("writes", result.Writes()),
		zap.Bool("skipped", result.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
}
