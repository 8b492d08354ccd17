package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	alertapp "github.com/erp/stockcore/internal/application/alert"
	orderapp "github.com/erp/stockcore/internal/application/order"
	stockapp "github.com/erp/stockcore/internal/application/stock"
	supplyapp "github.com/erp/stockcore/internal/application/supply"
	"github.com/erp/stockcore/internal/infrastructure/cache"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/infrastructure/scheduler"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/erp/stockcore/internal/interfaces/http/dto"
	"github.com/erp/stockcore/internal/interfaces/http/handler"
	"github.com/erp/stockcore/internal/interfaces/http/middleware"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stockcore",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterCfg := otelCfg
	meterCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled
	meterProvider, err := telemetry.NewMeterProvider(ctx, meterCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing: telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Low stock reconciler. The scheduler doubles as the sweep trigger for
	// every stock-mutating service.
	alertService := alertapp.NewLowStockService(repos, log)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		alertService.SetLocker(cache.NewRedisSweepLocker(redisClient, cfg.Reconciler.LockTTL, log))
		log.Info("Sweep lock backed by Redis", zap.String("addr", cfg.Redis.Addr()))
	}
	sweepScheduler := scheduler.NewLowStockScheduler(scheduler.ConfigFrom(cfg.Reconciler), alertService, log)

	stockService := stockapp.NewService(scope, repos, log)
	stockService.SetSweepTrigger(sweepScheduler)
	ledgerService := stockapp.NewLedgerService(repos)
	orderService := orderapp.NewOrderService(scope, repos, sweepScheduler, log)
	workflowService := supplyapp.NewWorkflowService(scope, repos, sweepScheduler, log)

	meter := meterProvider.Meter(telemetry.TracerName)
	if err := telemetry.RegisterOpenAlertsGauge(meter, telemetry.NewGormOpenAlertCounter(db.DB)); err != nil {
		log.Fatal("Failed to register alert gauge", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up validator", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics middleware", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanStatus())
	engine.Use(httpMetrics)
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	health := handler.NewHealthHandler(db, sweepScheduler)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewStockHandler(stockService).Routes()...).
		Register(handler.NewLedgerHandler(ledgerService).Routes()...).
		Register(handler.NewOrderHandler(orderService).Routes()...).
		Register(handler.NewAlertHandler(alertService).Routes()...).
		Register(handler.NewSupplyHandler(workflowService).Routes()...).
		Register(health.Routes()...)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	if err := sweepScheduler.Start(runCtx); err != nil {
		log.Fatal("Failed to start low stock scheduler", zap.Error(err))
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopRun()
	if err := sweepScheduler.Stop(shutdownCtx); err != nil {
		log.Warn("Low stock scheduler did not stop in time", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
