package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	t.Run("metrics are registered with registry", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/schools", "200").Add(0)
		metrics.StorageOperationsTotal.WithLabelValues("list", "filesystem", "success").Add(0)
		metrics.UploadsTotal.WithLabelValues("stored").Add(0)

		families, err := registry.Gather()
		if err != nil {
			t.Fatalf("Failed to gather metrics: %v", err)
		}

		metricNames := make(map[string]bool)
		for _, family := range families {
			metricNames[family.GetName()] = true
		}

		expectedMetrics := []string{
			"schools_http_requests_total",
			"schools_storage_operations_total",
			"schools_uploads_total",
			"schools_created_total",
			"schools_validation_failures_total",
		}

		for _, name := range expectedMetrics {
			if !metricNames[name] {
				t.Errorf("Expected metric %s not found in registry", name)
			}
		}
	})

	t.Run("panics on duplicate registration", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		NewMetrics(registry)

		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic on duplicate registration, but didn't panic")
			}
		}()

		NewMetrics(registry)
	})
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	n, err := rw.Write([]byte(`{"id":1}`))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if rw.status != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, rw.status)
	}
	if rw.written != n || n != 8 {
		t.Errorf("Expected 8 bytes written, got %d", rw.written)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Underlying recorder got status %d", rec.Code)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	t.Run("records HTTP metrics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		wrappedHandler := HTTPMetricsMiddleware(metrics)(handler)

		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(rec, req)

		expected := `
# HELP schools_http_requests_total HTTP requests by route and status code
# TYPE schools_http_requests_total counter
schools_http_requests_total{method="GET",path="/test",status="200"} 1
`
		if err := testutil.CollectAndCompare(metrics.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
			t.Errorf("Unexpected counter value: %v", err)
		}

		if count := testutil.CollectAndCount(metrics.HTTPRequestDuration); count != 1 {
			t.Errorf("Expected 1 duration metric, got %d", count)
		}
		if count := testutil.CollectAndCount(metrics.HTTPResponseSize); count != 1 {
			t.Errorf("Expected 1 response size metric, got %d", count)
		}
	})

	t.Run("records request size with content length", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusCreated)
		})

		req := httptest.NewRequest("POST", "/schools", strings.NewReader("name=Lincoln"))
		rec := httptest.NewRecorder()
		HTTPMetricsMiddleware(metrics)(handler).ServeHTTP(rec, req)

		if count := testutil.CollectAndCount(metrics.HTTPRequestSize); count != 1 {
			t.Errorf("Expected 1 request size metric, got %d", count)
		}
	})

	t.Run("uses route template inside mux", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		router := mux.NewRouter()
		router.Use(HTTPMetricsMiddleware(metrics))
		router.PathPrefix("/schoolImages/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		for _, path := range []string{"/schoolImages/a.png", "/schoolImages/b.png"} {
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
		}

		expected := `
# HELP schools_http_requests_total HTTP requests by route and status code
# TYPE schools_http_requests_total counter
schools_http_requests_total{method="GET",path="/schoolImages/",status="404"} 2
`
		if err := testutil.CollectAndCompare(metrics.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
			t.Errorf("Unexpected counter value: %v", err)
		}
	})
}

func TestHTTPMetricsMiddleware_MethodLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/schools", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	for _, method := range []string{"PUT", "DELETE", "BREW", "X-RANDOM-1", "X-RANDOM-2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/schools", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/schools", nil))

	expected := `
# HELP schools_http_requests_total HTTP requests by route and status code
# TYPE schools_http_requests_total counter
schools_http_requests_total{method="GET",path="/schools",status="405"} 1
schools_http_requests_total{method="other",path="/schools",status="405"} 5
`
	if err := testutil.CollectAndCompare(metrics.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected counter value: %v", err)
	}
	if count := testutil.CollectAndCount(metrics.HTTPRequestDuration); count != 2 {
		t.Errorf("Expected 2 duration series, got %d", count)
	}
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.SchoolsCreatedTotal.Inc()

	rec := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "schools_created_total 1") {
		t.Errorf("Expected created counter in output, got:\n%s", rec.Body.String())
	}
}

func TestRegisterDBStats(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	if err := RegisterDBStats(registry, db, "schools"); err != nil {
		t.Fatalf("RegisterDBStats failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, family := range families {
		if family.GetName() == "go_sql_open_connections" {
			found = true
		}
	}
	if !found {
		t.Error("Expected go_sql_open_connections to be exported")
	}

	if err := RegisterDBStats(registry, db, "schools"); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}
