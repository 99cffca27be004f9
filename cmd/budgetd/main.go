package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/budget-sync-go/internal/config"
	"github.com/boddenberg/budget-sync-go/internal/handler"
	"github.com/boddenberg/budget-sync-go/internal/infra/cache"
	"github.com/boddenberg/budget-sync-go/internal/infra/docstore"
	"github.com/boddenberg/budget-sync-go/internal/infra/localstore"
	"github.com/boddenberg/budget-sync-go/internal/infra/observability"
	"github.com/boddenberg/budget-sync-go/internal/infra/resilience"
	"github.com/boddenberg/budget-sync-go/internal/port"
	"github.com/boddenberg/budget-sync-go/internal/syncengine"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_remote_store", cfg.UseRemoteStore),
		zap.Duration("debounce_interval", cfg.DebounceInterval),
		zap.Duration("suppression_window", cfg.SuppressionWindow),
		zap.Duration("write_timeout", cfg.WriteTimeout),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "budget-sync")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	claimsCache := cache.New[string](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("docstore")

	// --- Document store ---
	var docs port.DocumentStore
	var closeStore func() error

	if cfg.UseRemoteStore && cfg.DocStoreURL != "" {
		logger.Info("using remote document store",
			zap.String("docstore_url", cfg.DocStoreURL),
		)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		docs = docstore.NewClient(httpClient, cfg.DocStoreURL, cfg.DocStoreAPIKey, cb, resilienceCfg, logger)
	} else {
		logger.Info("using local SQLite document store",
			zap.String("path", cfg.LocalStorePath),
		)
		local, err := localstore.NewStore(cfg.LocalStorePath, logger)
		if err != nil {
			logger.Fatal("failed to open local store", zap.Error(err))
		}
		docs = local
		closeStore = local.Close
	}

	// --- Sessions ---
	sessions := syncengine.NewManager(docs, syncengine.Config{
		DebounceInterval:  cfg.DebounceInterval,
		SuppressionWindow: cfg.SuppressionWindow,
		WriteTimeout:      cfg.WriteTimeout,
	}, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(sessions, cfg.JWTSecret, claimsCache, metrics, logger)

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
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	// Tear down live sessions so pending debounced writes are cancelled
	// before the process exits.
	if err := sessions.Shutdown(ctx); err != nil {
		logger.Error("session shutdown failed", zap.Error(err))
	}
	if closeStore != nil {
		if err := closeStore(); err != nil {
			logger.Error("local store close failed", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}
