package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/shoppyshops/shoppyshops.shop/internal/application/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/application/webhook"
	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/cache"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/config"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/logger"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/persistence"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/platform"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/ratelimit"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/scheduler"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/telemetry"
	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/handler"
	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/middleware"
	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	log.Debug("Configuration loaded", zap.Any("config", cfg.Redacted()))

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Initialize repositories
	listingRepo := persistence.NewGormListingRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Webhook dedup store: Redis when configured, in-memory otherwise
	var dedupStore syncdomain.IdempotencyStore
	if cfg.Redis.Enabled {
		dedupStore, err = cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Using Redis webhook dedup store", zap.String("addr", cfg.Redis.Addr()))
	} else {
		dedupStore = cache.NewInMemoryIdempotencyStore()
	}
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing dedup store", zap.Error(err))
		}
	}()

	// Status event bus with bounded replay buffer
	bus := event.NewBus(cfg.Event.RingCapacity, log)
	defer bus.Close()

	// Shared rate limiter for all platform calls
	limiter, err := ratelimit.NewClient(ratelimit.Config{
		Buckets: map[syncdomain.PlatformCode]ratelimit.BucketConfig{
			syncdomain.PlatformCodeShopify: {QPS: cfg.RateLimit.Shopify.QPS, Burst: cfg.RateLimit.Shopify.Burst},
			syncdomain.PlatformCodeEbay:    {QPS: cfg.RateLimit.Ebay.QPS, Burst: cfg.RateLimit.Ebay.Burst},
			syncdomain.PlatformCodeMeta:    {QPS: cfg.RateLimit.Meta.QPS, Burst: cfg.RateLimit.Meta.Burst},
		},
		MaxRetries:  cfg.RateLimit.MaxRetries,
		BaseDelay:   cfg.RateLimit.BaseDelay,
		MaxDelay:    cfg.RateLimit.MaxDelay,
		WaitCeiling: cfg.RateLimit.WaitCeiling,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize rate limiter", zap.Error(err))
	}

	// Platform adapters
	shopifyCfg := platform.NewShopifyConfig(cfg.Shopify.APIKey, cfg.Shopify.APISecret, cfg.Shopify.AccessToken, cfg.Shopify.ShopURL)
	if cfg.Shopify.APIVersion != "" {
		shopifyCfg.APIVersion = cfg.Shopify.APIVersion
	}
	shopify, err := platform.NewShopifyAdapter(shopifyCfg, limiter, log)
	if err != nil {
		log.Fatal("Failed to initialize Shopify adapter", zap.Error(err))
	}

	ebayCfg := platform.NewEbayConfig(cfg.Ebay.AppID, cfg.Ebay.CertID, cfg.Ebay.DevID, cfg.Ebay.UserToken)
	if cfg.Ebay.Environment != "" {
		ebayCfg.Environment = cfg.Ebay.Environment
	}
	ebay, err := platform.NewEbayAdapter(ebayCfg, limiter, log)
	if err != nil {
		log.Fatal("Failed to initialize eBay adapter", zap.Error(err))
	}

	meta, err := platform.NewMetaAdapter(
		platform.NewMetaConfig(cfg.Meta.AppID, cfg.Meta.AppSecret, cfg.Meta.AccessToken, cfg.Meta.AdAccountID),
		limiter, log)
	if err != nil {
		log.Fatal("Failed to initialize Meta adapter", zap.Error(err))
	}

	// Reconciliation engine
	reconciler := syncapp.NewReconciler(shopify, ebay, listingRepo, orderRepo, bus, syncapp.Config{
		OrderLookback: cfg.Sync.OrderLookback,
	}, log)

	// Scheduler drives full passes on a ticker and debounced partial passes
	// from webhooks
	sched, err := scheduler.NewSyncScheduler(schedulerConfig(cfg.Sync), &reconcilerExecutor{reconciler: reconciler}, log)
	if err != nil {
		log.Fatal("Failed to initialize scheduler", zap.Error(err))
	}
	if err := sched.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Webhook ingestion
	ingest := webhook.NewIngestService(dedupStore, sched, webhook.Config{
		DedupTTL: cfg.Sync.DedupTTL,
	}, log)

	// Telemetry
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Counters bind to the global meter provider, so this comes after it
	syncMetrics, err := telemetry.NewSyncMetrics(log)
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}
	syncMetrics.Observe(bus)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Shopify deliveries are verified against the app secret unless a
	// dedicated webhook secret is configured.
	webhookSecret := cfg.Shopify.WebhookSecret
	if webhookSecret == "" {
		webhookSecret = cfg.Shopify.APISecret
	}

	r := router.NewRouter(engine)
	r.Register(handler.NewWebhookHandler(ingest, webhookSecret, log)).
		Register(handler.NewSyncHandler(sched, limiter, bus, log)).
		Register(handler.NewStreamHandler(bus, cfg.Event.SSEHeartbeat, log)).
		Register(handler.NewOrderHandler(orderRepo, log)).
		Register(handler.NewInsightsHandler(meta, log)).
		Register(handler.NewSystemHandler(db, []handler.StatusChecker{shopify, ebay, meta}, log))
	r.Setup()

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
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sched.Stop(ctx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}
	syncMetrics.Close()
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// schedulerConfig maps the loaded sync settings onto the scheduler's
// configuration.
func schedulerConfig(sync config.SyncConfig) scheduler.Config {
	return scheduler.Config{
		FullSyncInterval:  sync.FullSyncInterval,
		DebounceWindow:    sync.DebounceWindow,
		MaxConcurrentJobs: sync.MaxConcurrentJobs,
		JobTimeout:        sync.JobTimeout,
		QueueCapacity:     sync.QueueCapacity,
	}
}

// reconcilerExecutor adapts the reconciliation engine to the scheduler's
// executor interface, folding the pass summary into the job record.
type reconcilerExecutor struct {
	reconciler *syncapp.Reconciler
}

func (e *reconcilerExecutor) Execute(ctx context.Context, job *scheduler.SyncJob) error {
	summary, err := e.reconciler.Reconcile(ctx, job.Scope)
	if err != nil {
		return err
	}
	job.Complete(summary.Applied, summary.Skipped, summary.Failed, summary.Conflicts)
	return nil
}
