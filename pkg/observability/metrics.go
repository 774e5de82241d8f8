package observability

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors the service updates
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageErrorsTotal       *prometheus.CounterVec

	// Upload metrics
	UploadsTotal    *prometheus.CounterVec
	UploadSizeBytes prometheus.Histogram

	// Record metrics
	SchoolsCreatedTotal     prometheus.Counter
	ValidationFailuresTotal prometheus.Counter
}

const namespace = "schools"

// requestLabels identify a route; the path is the mux template, not the raw URL
var requestLabels = []string{"method", "path"}

// NewMetrics creates the service metrics on registry. Registering twice on
// the same registry panics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	sizeBuckets := prometheus.ExponentialBuckets(100, 10, 8)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code",
		}, append(requestLabels, "status")),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, requestLabels),
		HTTPRequestSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_size_bytes",
			Help:    "Declared request body size by route",
			Buckets: sizeBuckets,
		}, requestLabels),
		HTTPResponseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
			Help:    "Response body size by route",
			Buckets: sizeBuckets,
		}, requestLabels),

		StorageOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "storage", Name: "operations_total",
			Help: "School store calls by operation, backend and outcome",
		}, []string{"operation", "backend", "status"}),
		StorageOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage", Name: "operation_duration_seconds",
			Help:    "School store call latency",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation", "backend"}),
		StorageErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "storage", Name: "errors_total",
			Help: "Failed school store calls by error class",
		}, []string{"operation", "backend", "error_type"}),

		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "uploads_total",
			Help: "Image uploads by outcome (stored or rejected)",
		}, []string{"result"}),
		UploadSizeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "upload_size_bytes",
			Help:    "Size of stored images",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),

		SchoolsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "created_total",
			Help: "School records persisted",
		}),
		ValidationFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "validation_failures_total",
			Help: "Submissions rejected by field validation",
		}),
	}
}

// RegisterDBStats exposes connection pool statistics for db under the given name.
func RegisterDBStats(registry *prometheus.Registry, db *sql.DB, name string) error {
	return registry.Register(collectors.NewDBStatsCollector(db, name))
}

// statusRecorder remembers the status and counts body bytes
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.written += n
	return n, err
}

// routeLabel prefers the matched route template so file paths under the
// image prefix collapse into one series.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// methodLabel keeps the method label bounded; the /schools catch-all route
// accepts any method string a client sends.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
		return method
	default:
		return "other"
	}
}

// HTTPMetricsMiddleware records count, latency and sizes per route. It is
// meant for router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, route := methodLabel(r.Method), routeLabel(r)
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(method, route).Observe(float64(r.ContentLength))
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			timer := prometheus.NewTimer(metrics.HTTPRequestDuration.WithLabelValues(method, route))
			next.ServeHTTP(rec, r)
			timer.ObserveDuration()

			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPResponseSize.WithLabelValues(method, route).Observe(float64(rec.written))
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
