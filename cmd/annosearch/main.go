package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/config"
	dbRedis "github.com/kailas-cloud/annosearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/annosearch/internal/logger"
	"github.com/kailas-cloud/annosearch/internal/metrics"
	"github.com/kailas-cloud/annosearch/internal/repository/metricscache"
	"github.com/kailas-cloud/annosearch/internal/searchengine"
	"github.com/kailas-cloud/annosearch/internal/searchengine/backends"
	"github.com/kailas-cloud/annosearch/internal/tracing"
	chiTransport "github.com/kailas-cloud/annosearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/annosearch/internal/usecase/health"
	"github.com/kailas-cloud/annosearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting annosearch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend", cfg.SearchEngine.Backend),
		zap.Strings("hosts", cfg.SearchEngine.Hosts),
	)

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, env, logger)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEngineMetrics()
	metrics.RegisterHTTPMetrics()

	registry := backends.Registry()
	engine, err := registry.Open(ctx, cfg.SearchEngine.Backend, cfg.EngineConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to open search engine", zap.Error(err))
	}

	readiness := time.Duration(cfg.SearchEngine.ReadinessTimeout) * time.Second
	if err := searchengine.WaitForReady(ctx, engine, readiness); err != nil {
		logger.Fatal("Search engine not ready", zap.Error(err))
	}
	logger.Info("Connected to search engine")

	var cachePinger healthuc.Pinger
	if cfg.MetricsCache.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.MetricsCache.Addrs,
			Username: cfg.MetricsCache.Username,
			Password: cfg.MetricsCache.Password,
			DB:       cfg.MetricsCache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create metrics cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, readiness); err != nil {
			// The cache is optional: serve uncached and report degraded health.
			logger.Warn("Metrics cache not ready", zap.Error(err))
		}
		engine = metricscache.New(
			engine, store,
			time.Duration(cfg.MetricsCache.TTLSec)*time.Second,
			metrics.MetricsCacheTotal, logger,
		)
		cachePinger = store
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("Error closing search engine", zap.Error(err))
		}
	}()

	healthSvc := healthuc.New(engine, cfg.SearchEngine.Backend, cachePinger, logger)
	server := chiTransport.NewServer(healthSvc, registry.Names(), logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.HTTP.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
