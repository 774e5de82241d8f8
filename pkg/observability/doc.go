// Package observability provides structured logging, Prometheus metrics,
// health probes and graceful shutdown for the schools service.
//
// # Structured Logging
//
// Logs are JSON lines written through logrus:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("backend", "filesystem").Info("Storage ready")
//
// Request-scoped logging:
//
//	ctx = observability.WithRequestID(ctx, reqID)
//	observability.FromContext(ctx).WithError(err).Error("Failed to add school")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	store = observability.InstrumentStorage(store, metrics, "relational")
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, "relational", version)
//	router.HandleFunc("/readyz", checker.Readiness)
package observability
