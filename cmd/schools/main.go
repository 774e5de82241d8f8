package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/schoolreg/pkg/api"
	"github.com/platinummonkey/schoolreg/pkg/backend"
	"github.com/platinummonkey/schoolreg/pkg/config"
	"github.com/platinummonkey/schoolreg/pkg/httputil"
	"github.com/platinummonkey/schoolreg/pkg/observability"
	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage/relational"
	"github.com/platinummonkey/schoolreg/pkg/upload"
	"github.com/platinummonkey/schoolreg/pkg/validation"
)

// formOverhead bounds the non-file part of a submission
const formOverhead int64 = 1 << 20

func main() {
	// A missing .env is fine; the environment may already be populated
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("version", cfg.Observability.ServiceVersion)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, kind, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	var (
		metrics        *observability.Metrics
		metricsHandler http.Handler
	)
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
		metricsHandler = observability.MetricsHandler(registry)

		if rel, ok := store.(*relational.Storage); ok {
			if err := observability.RegisterDBStats(registry, rel.DB(), "schools"); err != nil {
				logger.WithError(err).Warn("Failed to register database pool metrics")
			}
		}
		store = observability.InstrumentStorage(store, metrics, string(kind))
	}

	uploads := upload.NewHandler(cfg.Uploads.Dir, schools.PublicImagePrefix)
	uploads.MaxFileSize = cfg.Uploads.MaxFileSize
	uploads.MaxFieldSize = cfg.Uploads.MaxFieldSize

	service := api.NewSchoolService(store, uploads, validation.NewValidator(), metrics)

	router := api.NewServer(api.Options{
		Service:        service,
		Health:         observability.NewHealthChecker(store, string(kind), cfg.Observability.ServiceVersion),
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		ImageDir:       cfg.Uploads.Dir,
		MaxBodyBytes:   cfg.Uploads.MaxFileSize + formOverhead,
	})

	handler := httputil.Chain(
		httputil.RequestIDMiddleware(logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(cfg.Server.CORSOrigins),
	)(router)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     logger.StdLogger(),
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return store.Close()
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":       server.Addr,
			"backend":    string(kind),
			"upload_dir": cfg.Uploads.Dir,
		}).Info("Starting school registry server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
			cancel()
		}
	}()

	shutdownErr := shutdown.WaitForShutdown(ctx)

	select {
	case err := <-listenErr:
		return err
	default:
		return shutdownErr
	}
}
