package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/lumenmap/lightwatch/internal/adapter/http"
	kafkaadapter "github.com/lumenmap/lightwatch/internal/adapter/kafka"
	"github.com/lumenmap/lightwatch/internal/adapter/store"
	"github.com/lumenmap/lightwatch/internal/config"
	"github.com/lumenmap/lightwatch/internal/engine"
	"github.com/lumenmap/lightwatch/internal/feed"
	"github.com/lumenmap/lightwatch/internal/observability"
	"github.com/lumenmap/lightwatch/internal/submit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	eng := engine.New(logger, metrics)

	storeClient := store.NewClient(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreTimeout, logger)

	// No interactive contact capture on the service surface: a submission
	// without resolvable identity surfaces as contact-required to the caller,
	// which owns the capture UI.
	pipeline := submit.New(storeClient, eng, nil, cfg.AnonCooldownSize, logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	f := feed.New(reader, eng, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, eng, pipeline, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start push-feed loop.
	go func() {
		if err := f.Run(ctx); err != nil {
			logger.Error("feed error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
