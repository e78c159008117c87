package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appevent "github.com/voyago/backend/internal/application/event"
	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/infrastructure/auth"
	"github.com/voyago/backend/internal/infrastructure/cache"
	"github.com/voyago/backend/internal/infrastructure/config"
	"github.com/voyago/backend/internal/infrastructure/event"
	"github.com/voyago/backend/internal/infrastructure/logger"
	"github.com/voyago/backend/internal/infrastructure/persistence"
	"github.com/voyago/backend/internal/infrastructure/scheduler"
	"github.com/voyago/backend/internal/infrastructure/telemetry"
	"github.com/voyago/backend/internal/interfaces/http/handler"
	"github.com/voyago/backend/internal/interfaces/http/middleware"
	"github.com/voyago/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/voyago/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Voyago Ledger API
//	@version		1.0
//	@description	Financial ledger core for the Voyago travel platform: wallet and points accounts, redemptions, milestone rewards and points expiry.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/voyago/backend
//	@contact.email	support@voyago.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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

	log.Info("Starting Voyago Ledger Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// OpenTelemetry: traces, metrics, database instrumentation, profiling
	var meterProvider *telemetry.MeterProvider
	if cfg.Telemetry.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracer provider", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()

		meterProvider, err = telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			if err := meterProvider.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}()

		// Bridge zap logs to the collector alongside the configured output
		loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize OTEL logger provider", zap.Error(err))
		} else {
			defer func() {
				if err := loggerProvider.Shutdown(context.Background()); err != nil {
					log.Error("Error shutting down logger provider", zap.Error(err))
				}
			}()
			otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
				ServiceName:    cfg.Telemetry.ServiceName,
				LoggerProvider: loggerProvider,
				Level:          zapcore.InfoLevel,
			})
			log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
				return zapcore.NewTee(core, otelCore)
			}))
		}

		// Database query tracing via otelgorm
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}

		// Database metrics and connection pool stats
		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("db"), telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize database metrics", zap.Error(err))
		} else {
			if sqlDB, err := db.DB.DB(); err == nil {
				dbMetrics.SetSQLDB(sqlDB)
				dbMetrics.StartPoolStatsCollection(context.Background())
			}
			if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
				log.Warn("Failed to register database metrics plugin", zap.Error(err))
			}
			defer dbMetrics.Stop()
		}

		// Ledger gauges (outstanding credit, pending payouts) collected
		// periodically per tenant
		ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:          meterProvider.Meter("ledger"),
			Logger:         log,
			LedgerProvider: telemetry.NewGormLedgerMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize ledger metrics", zap.Error(err))
		} else {
			ledgerMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormTenantProvider(db.DB), 5*time.Minute)
			defer ledgerMetrics.Stop()
		}

		// Continuous profiling (Pyroscope)
		if cfg.Telemetry.ProfilerEnabled {
			profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
				Enabled:           true,
				ServerAddress:     cfg.Telemetry.ProfilerAddress,
				ApplicationName:   cfg.Telemetry.ServiceName,
				ProfileCPU:        true,
				ProfileInuseSpace: true,
				ProfileGoroutines: true,
			}, log)
			if err != nil {
				log.Warn("Failed to start profiler", zap.Error(err))
			} else {
				defer func() {
					if err := profiler.Stop(); err != nil {
						log.Error("Error stopping profiler", zap.Error(err))
					}
				}()
				// Span profiles need the profiler running first
				if err := tracerProvider.EnableSpanProfiles(); err != nil {
					log.Warn("Failed to enable span profiles", zap.Error(err))
				}
			}
		}

		log.Info("Telemetry initialized",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.Telemetry.SamplingRatio),
			zap.Bool("db_tracing", cfg.Telemetry.DBTraceEnabled),
			zap.Bool("profiler", cfg.Telemetry.ProfilerEnabled),
		)
	}

	// Initialize repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Outbox publisher persists domain events durably; delivery to
	// subscribers happens through the outbox processor
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Transaction scope binds every ledger mutation, its derived state and
	// its outbox entries to one database transaction
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Initialize application services
	ledgerService := appledger.NewLedgerService(txScope, appledger.Config{
		PointsRedemptionRate: cfg.Ledger.PointsRedemptionRate,
		MaxRetries:           cfg.Ledger.MaxRetries,
	}, log)

	milestoneRules := make([]ledger.MilestoneRule, 0, len(cfg.Ledger.MilestoneRules))
	for _, rule := range cfg.Ledger.MilestoneRules {
		milestoneRules = append(milestoneRules, ledger.MilestoneRule{
			ID:           rule.ID,
			EventType:    rule.EventType,
			Threshold:    rule.Threshold,
			RewardPoints: rule.RewardPoints,
			Description:  rule.Description,
		})
	}
	milestoneService := appledger.NewMilestoneService(txScope, ledgerService, appledger.MilestoneConfig{
		Rules:             milestoneRules,
		MaxPayoutAttempts: cfg.Ledger.MaxPayoutAttempts,
	}, log)

	expiryService := appledger.NewExpiryService(txScope, appledger.ExpiryConfig{
		RetentionMonths: cfg.Ledger.PointsRetentionMonths,
	}, log)

	outboxService := appevent.NewOutboxService(outboxRepo, log)

	// Balance cache: tiered (in-process + Redis) when Redis is reachable,
	// in-process only otherwise
	redisCfg := cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	var balanceCache appledger.BalanceCache
	l2Cache, err := cache.NewRedisBalanceCache(redisCfg, cache.WithBalanceCacheLogger(log))
	if err != nil {
		log.Warn("Redis unavailable, using in-memory balance cache", zap.Error(err))
		balanceCache = cache.NewInMemoryBalanceCache(cache.WithInMemoryBalanceLogger(log))
	} else {
		invalidator, err := cache.NewRedisBalanceInvalidator(redisCfg, cache.WithInvalidatorLogger(log))
		if err != nil {
			log.Fatal("Failed to create balance invalidator", zap.Error(err))
		}
		l1Cache := cache.NewInMemoryBalanceCache(cache.WithInMemoryBalanceLogger(log))
		tiered := cache.NewTieredBalanceCache(l1Cache, l2Cache, invalidator, cache.WithTieredLogger(log))
		if err := tiered.StartInvalidationSubscription(context.Background()); err != nil {
			log.Warn("Failed to start balance invalidation subscription", zap.Error(err))
		}
		balanceCache = tiered
	}
	defer func() {
		if err := balanceCache.Close(); err != nil {
			log.Error("Error closing balance cache", zap.Error(err))
		}
	}()

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Idempotency store guards event handlers against outbox redelivery
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Inbound activity events -> milestone evaluation
	activityHandler := appledger.NewActivityHandler(milestoneService, log)
	eventBus.Subscribe(event.NewIdempotentHandler(activityHandler, idempotencyStore, log))

	// Ledger writes -> cached balance eviction
	evictionHandler := cache.NewBalanceEvictionHandler(balanceCache, log)
	eventBus.Subscribe(evictionHandler)

	log.Info("Event handlers registered",
		zap.Strings("activity_events", activityHandler.EventTypes()),
		zap.Strings("eviction_events", evictionHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize and start outbox processor for guaranteed event delivery
	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if err := outboxProcessor.Start(context.Background()); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}
	defer func() {
		if err := outboxProcessor.Stop(context.Background()); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()
	log.Info("Outbox processor started",
		zap.Int("batch_size", outboxProcessorConfig.BatchSize),
		zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
	)

	// Initialize background job scheduler (if enabled)
	if cfg.Scheduler.Enabled {
		schedulerConfig := scheduler.SchedulerConfig{
			Enabled:           cfg.Scheduler.Enabled,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}
		tenantProvider := scheduler.NewAccountTenantProvider(accountRepo)
		jobExecutor := scheduler.NewLedgerJobExecutor(expiryService, milestoneService, tenantProvider, log)
		ledgerScheduler := scheduler.NewScheduler(schedulerConfig, jobExecutor, log)
		if err := ledgerScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := ledgerScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		sweepHour, sweepMinute, err := scheduler.ParseDailySchedule(cfg.Scheduler.ExpirySweepSchedule)
		if err != nil {
			log.Fatal("Invalid expiry sweep schedule", zap.Error(err))
		}
		triggerConfig := scheduler.CronTriggerConfig{
			SweepHour:      sweepHour,
			SweepMinute:    sweepMinute,
			PayoutInterval: cfg.Scheduler.PayoutRetryInterval,
			CheckInterval:  time.Minute,
		}
		cronTrigger := scheduler.NewCronTrigger(triggerConfig, ledgerScheduler, tenantProvider, log)
		if err := cronTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			if err := cronTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
			zap.Int("sweep_hour", sweepHour),
			zap.Int("sweep_minute", sweepMinute),
			zap.Duration("payout_retry_interval", cfg.Scheduler.PayoutRetryInterval),
		)
	}

	// Initialize HTTP handlers
	accountHandler := handler.NewAccountHandler(ledgerService)
	walletHandler := handler.NewWalletHandler(ledgerService)
	pointsHandler := handler.NewPointsHandler(ledgerService)
	balanceHandler := handler.NewBalanceHandler(ledgerService, balanceCache, log)
	milestoneHandler := handler.NewMilestoneHandler(milestoneService)
	expiryHandler := handler.NewExpiryHandler(expiryService)
	outboxHandler := handler.NewOutboxHandler(outboxService)

	// JWT service for authentication middleware
	jwtService := auth.NewJWTService(cfg.JWT)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Telemetry middleware: tracing, HTTP metrics, profiling labels
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
		if cfg.Telemetry.ProfilerEnabled {
			engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
				Enabled:   true,
				SkipPaths: []string{"/health"},
			}))
		}
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint, auth-gated outside development
	swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     true,
		RequireAuth: cfg.App.Env == "production",
	}, middleware.JWTAuthMiddleware(jwtService))
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Tenant resolution: JWT claims first, X-Tenant-ID header as fallback
	r.Use(middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
		HeaderEnabled: true,
		JWTEnabled:    true,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Required: cfg.App.Env == "production",
		Logger:   log,
	}))

	// Ledger domain routes
	ledgerRoutes := router.NewDomainGroup("ledger", "/ledger")

	// Account routes
	ledgerRoutes.POST("/accounts", accountHandler.OpenAccounts)
	ledgerRoutes.GET("/accounts/:id", accountHandler.GetAccount)
	ledgerRoutes.PUT("/accounts/:id/credit-limit", accountHandler.SetCreditLimit)
	ledgerRoutes.GET("/accounts/:id/transactions", accountHandler.ListTransactions)

	// Wallet routes
	ledgerRoutes.POST("/accounts/:id/debit", walletHandler.Debit)
	ledgerRoutes.POST("/accounts/:id/credit", walletHandler.Credit)
	ledgerRoutes.POST("/accounts/:id/repay", walletHandler.Repay)

	// Points routes
	ledgerRoutes.POST("/holders/:id/points/earn", pointsHandler.Earn)
	ledgerRoutes.POST("/holders/:id/points/redeem", pointsHandler.Redeem)
	ledgerRoutes.GET("/redemptions/:id", pointsHandler.GetRedemption)
	ledgerRoutes.POST("/redemptions/:id/cancel", pointsHandler.Cancel)
	ledgerRoutes.POST("/redemptions/:id/complete", pointsHandler.Complete)

	// Balance routes
	ledgerRoutes.GET("/holders/:id/balance", balanceHandler.GetBalance)

	// Milestone routes
	ledgerRoutes.POST("/activity", milestoneHandler.RecordActivity)
	ledgerRoutes.GET("/holders/:id/milestones", milestoneHandler.ListMilestones)
	ledgerRoutes.POST("/milestones/payout", middleware.RequirePermission("ledger:admin"), milestoneHandler.PayoutPending)

	// Expiry routes
	ledgerRoutes.POST("/expiry/sweep", middleware.RequirePermission("ledger:admin"), expiryHandler.Sweep)

	r.Register(ledgerRoutes)

	// System routes (info, ping, outbox administration)
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/outbox/dead", middleware.RequirePermission("ledger:admin"), outboxHandler.GetDeadLetterEntries)
	systemRoutes.GET("/outbox/stats", middleware.RequirePermission("ledger:admin"), outboxHandler.GetStats)
	systemRoutes.GET("/outbox/:id", middleware.RequirePermission("ledger:admin"), outboxHandler.GetEntry)
	systemRoutes.POST("/outbox/:id/retry", middleware.RequirePermission("ledger:admin"), outboxHandler.RetryDeadEntry)
	systemRoutes.POST("/outbox/dead/retry-all", middleware.RequirePermission("ledger:admin"), outboxHandler.RetryAllDeadEntries)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
