package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/otd-engine/internal/catalog"
	"github.com/boddenberg/otd-engine/internal/config"
	"github.com/boddenberg/otd-engine/internal/handler"
	"github.com/boddenberg/otd-engine/internal/infra/cache"
	"github.com/boddenberg/otd-engine/internal/infra/observability"
	"github.com/boddenberg/otd-engine/internal/infra/resilience"
	"github.com/boddenberg/otd-engine/internal/infra/taxsource"
	"github.com/boddenberg/otd-engine/internal/port"
	"github.com/boddenberg/otd-engine/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("catalog_path", cfg.CatalogPath),
		zap.String("tax_data_source", cfg.TaxDataSource),
		zap.String("tax_refresh_schedule", cfg.TaxRefreshSchedule),
		zap.Duration("tax_cache_ttl", cfg.TaxCacheTTL),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("admin_enabled", cfg.AdminJWTSecret != ""),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	var docCache port.Cache[[]byte]
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedis(cfg.RedisAddr, "otd:", cfg.TaxCacheTTL, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, using in-memory cache",
				zap.String("addr", cfg.RedisAddr),
				zap.Error(err),
			)
			_ = rdb.Close()
		} else {
			logger.Info("using redis tax document cache", zap.String("addr", cfg.RedisAddr))
			docCache = rdb
			defer rdb.Close()
		}
	}
	if docCache == nil {
		mem := cache.New[[]byte](cfg.TaxCacheTTL)
		defer mem.Close()
		docCache = mem
	}

	// --- Tax source ---
	fetcher, err := taxsource.New(ctx, cfg.TaxDataSource, taxsource.Options{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Breaker:    resilience.NewCircuitBreaker("tax-source", logger),
		Retry: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		},
		AWSRegion: cfg.AWSRegion,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("invalid tax data source", zap.String("source", cfg.TaxDataSource), zap.Error(err))
	}

	taxSvc := service.NewTaxService(fetcher, docCache, metrics, logger)

	// --- Startup loads ---
	// The catalog is required; the tax table is not, quotes fall back to
	// statewide estimates until a refresh succeeds.
	var cat *catalog.Catalog
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	g, gctx := errgroup.WithContext(startCtx)
	g.Go(func() error {
		var err error
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := taxSvc.Load(gctx); err != nil {
			logger.Warn("starting without tax table", zap.Error(err))
		}
		return nil
	})
	err = g.Wait()
	cancel()
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	logger.Info("catalog loaded",
		zap.Int("fees", len(cat.Fees)),
		zap.Int("addons", len(cat.Addons)),
		zap.Int("discounts", len(cat.Discounts)),
		zap.Ints("terms", cat.Terms),
	)

	// --- Services ---
	quoteSvc := service.NewQuoteService(cat, taxSvc, metrics, logger)
	admin := service.NewAdminAuth(cfg.AdminJWTSecret)

	// --- Scheduler ---
	scheduler := service.NewScheduler(logger)
	if cfg.TaxRefreshSchedule != "" {
		if err := scheduler.AddJob(cfg.TaxRefreshSchedule, taxSvc); err != nil {
			logger.Fatal("invalid tax refresh schedule", zap.String("schedule", cfg.TaxRefreshSchedule), zap.Error(err))
		}
	}
	scheduler.Start()

	// --- Router ---
	router := handler.NewRouter(quoteSvc, taxSvc, admin, metrics, handler.Options{
		CORSOrigins:    cfg.CORSOrigins,
		MaxConcurrency: cfg.MaxConcurrency,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	scheduler.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
