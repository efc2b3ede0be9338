package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops_backend/internal/adapters"
	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/http/router"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/payments"
	"fieldops_backend/internal/storage"
	"fieldops_backend/internal/stream"
	"fieldops_backend/internal/technicians"
	"fieldops_backend/internal/workorders"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Prometheus collectors for the dispatch workflow
	dispatchMetrics := metrics.New()

	// Storage service for proof image uploads (MinIO); nil disables the
	// image path and proof uploads then require a proofImageRef.
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure proof images bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx, cfg.GetProofImagesBucket())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetProofImagesBucket())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = minioSvc
		log.Info("storage service initialized", "proofImagesBucket", cfg.GetProofImagesBucket())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; proof image uploads disabled")
	}

	// Redis cache for payment verification stats
	var cache *redis.Client
	if cfg.IsRedisEnabled() {
		opts, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			log.Error("failed to parse redis url", "error", err)
			panic("failed to parse redis url: " + err.Error())
		}
		cache = redis.NewClient(opts)
		defer cache.Close()
		log.Info("redis cache initialized", "statsCacheTTL", cfg.GetStatsCacheTTL())
	} else {
		log.Warn("REDIS_URL not configured; payment stats caching disabled")
	}

	// Kafka publisher forwards domain events to the dispatch topic
	if cfg.IsKafkaEnabled() {
		publisher := stream.NewPublisher(cfg.GetKafkaBrokers(), cfg.GetKafkaTopic(), log)
		publisher.Register(eventBus)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("failed to close kafka publisher", "error", err)
			}
		}()
		log.Info("kafka publisher initialized", "topic", cfg.GetKafkaTopic())
	}

	defaults := compensation.Defaults{
		CommissionRate: cfg.GetDefaultCommissionRate(),
		BonusRate:      cfg.GetDefaultBonusRate(),
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// The three modules reference each other through ports. The locator and
	// payment viewer are late-bound to break the construction cycle.
	locator := adapters.NewWorkOrderLocator()
	techniciansModule := technicians.NewModule(pool, val, log, eventBus, defaults, dispatchMetrics, locator)

	paymentViewer := adapters.NewPaymentViewer()
	workOrdersModule := workorders.NewModule(pool, val, log, eventBus, dispatchMetrics,
		adapters.NewTechnicianGate(techniciansModule.Service()), paymentViewer)

	paymentsModule := payments.NewModule(pool, val, log, eventBus, dispatchMetrics,
		storageSvc, cache,
		adapters.NewWorkOrderSource(workOrdersModule.Repository()),
		adapters.NewTechnicianDirectory(techniciansModule.Service()),
		defaults, cfg.GetProofImagesBucket(), cfg.GetStatsCacheTTL())

	locator.Bind(workOrdersModule.Repository())
	paymentViewer.Bind(paymentsModule.Service())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			techniciansModule,
			workOrdersModule,
			paymentsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
