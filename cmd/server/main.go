package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/infrastructure/cache"
	"github.com/banper/backend/internal/infrastructure/config"
	"github.com/banper/backend/internal/infrastructure/event"
	"github.com/banper/backend/internal/infrastructure/lock"
	"github.com/banper/backend/internal/infrastructure/logger"
	"github.com/banper/backend/internal/infrastructure/migration"
	"github.com/banper/backend/internal/infrastructure/persistence"
	"github.com/banper/backend/internal/infrastructure/scheduler"
	"github.com/banper/backend/internal/infrastructure/telemetry"
	"github.com/banper/backend/internal/interfaces/http/handler"
	"github.com/banper/backend/internal/interfaces/http/middleware"
	"github.com/banper/backend/internal/interfaces/http/router"
	"github.com/banper/backend/migrations"

	_ "github.com/banper/backend/docs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Banper Ledger API
//	@version		1.0
//	@description	Funding request lifecycle and allocation ledger for nutrition programs

//	@host		localhost:8080
//	@BasePath	/api/v1

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	log.Info("Starting Banper ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if logsProvider.IsEnabled() {
		log = telemetry.NewBridgedLogger(log.Core(), telemetry.NewZapOTELCore(logsProvider, log.Level()),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}

	// Database
	gormCfg := persistence.GormConfig(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		dbTracing.LogFullSQL = cfg.App.Env == "development"
		if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	if cfg.Database.MigrateOnStart {
		if err := migrateOnStart(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Allocation locks
	locker, closeLocker, err := lock.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize allocation locker", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing allocation locker", zap.Error(err))
		}
	}()

	// Application services
	settings, err := ledgerSettings(cfg)
	if err != nil {
		log.Fatal("Invalid ledger configuration", zap.Error(err))
	}
	txScope := persistence.NewGormTransactionScope(db.DB)
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)

	requestService := appfunding.NewFundingRequestService(
		persistence.NewGormFundingRequestRepository(db.DB), txScope, settings, log)
	allocationService := appfunding.NewAllocationService(allocationRepo, txScope, locker, settings, log)
	transactionService := appfunding.NewTransactionService(
		persistence.NewGormTransactionRepository(db.DB), txScope, locker, settings, log)

	// Events feed the audit log and the ledger metrics
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           meterProvider.Meter("banper.ledger"),
		Logger:          log,
		CollectInterval: cfg.Telemetry.MetricsInterval,
		Snapshots:       allocationRepo,
	})
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	eventBus.Subscribe(ledgerMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	requestService.SetEventPublisher(eventBus)
	allocationService.SetEventPublisher(eventBus)
	transactionService.SetEventPublisher(eventBus)

	if meterProvider.IsEnabled() {
		ledgerMetrics.StartPeriodicCollection(ctx)
	}

	// Fiscal year expiry
	triggerCfg := scheduler.DefaultExpiryTriggerConfig()
	triggerCfg.SweepHour = cfg.Scheduler.SweepHour
	triggerCfg.SweepMinute = cfg.Scheduler.SweepMinute
	if cfg.Scheduler.CheckInterval > 0 {
		triggerCfg.CheckInterval = cfg.Scheduler.CheckInterval
	}
	if cfg.Scheduler.JobTimeout > 0 {
		triggerCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	expiryTrigger, err := scheduler.NewExpiryTrigger(triggerCfg, allocationService, ledgerMetrics, log)
	if err != nil {
		log.Fatal("Failed to create expiry trigger", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := expiryTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start expiry trigger", zap.Error(err))
		}
	}

	// HTTP
	corsCfg := middleware.DefaultCORSConfig()
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    serviceName,
		Logger:         log,
		Meter:          meterProvider.Meter("banper.http"),
		CORS:           corsCfg,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	var routerOpts []router.RouterOption
	stopLimiter := make(chan struct{})
	if cfg.HTTP.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit.RequestsPerSecond, cfg.HTTP.RateLimit.Burst, 10*time.Minute)
		go limiter.RunSweeper(time.Minute, stopLimiter)
		routerOpts = append(routerOpts, router.WithScopedMiddleware(middleware.RateLimit(limiter)))
	}
	if cfg.HTTP.Idempotency.Enabled {
		store, closeStore, err := cache.NewIdempotencyStore(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
		defer func() {
			if err := closeStore(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		routerOpts = append(routerOpts, router.WithScopedMiddleware(middleware.Idempotency(store, cfg.HTTP.Idempotency.TTL)))
	}

	router.MountSwagger(engine, middleware.SwaggerConfig{
		Enabled:    cfg.Swagger.Enabled,
		AllowedIPs: cfg.Swagger.AllowedIPs,
	})

	r := router.NewRouter(engine, routerOpts...)
	r.RegisterPublic(handler.NewSystemHandler(cfg.App.Name, version, db, expiryTrigger)).
		Register(handler.NewFundingRequestHandler(requestService)).
		Register(handler.NewAllocationHandler(allocationService)).
		Register(handler.NewTransactionHandler(transactionService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	close(stopLimiter)
	if cfg.Scheduler.Enabled {
		if err := expiryTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Expiry trigger did not stop cleanly", zap.Error(err))
		}
	}
	ledgerMetrics.Stop()
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}
}

// ledgerSettings maps the ledger config section onto service settings
func ledgerSettings(cfg *config.Config) (appfunding.Settings, error) {
	settings := appfunding.DefaultSettings()
	settings.DisbursementCeiling = cfg.Ledger.DisbursementCeiling
	settings.Retry.MaxRetries = cfg.Ledger.ConflictRetries

	if cfg.Ledger.DefaultSource != "" {
		source := ledger.FundingSource(cfg.Ledger.DefaultSource)
		if !source.IsValid() {
			return settings, fmt.Errorf("ledger.default_source %q is not a funding source", cfg.Ledger.DefaultSource)
		}
		settings.DefaultSource = source
	}
	return settings, nil
}

func migrateOnStart(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared *sql.DB
	return m.Up()
}
