package observability

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/schoolreg/pkg/schools"
)

// InstrumentedStorage records operation counts, latency and failures for
// any schools.Storage.
type InstrumentedStorage struct {
	next    schools.Storage
	metrics *Metrics
	backend string
}

// InstrumentStorage wraps next so every call is recorded under backend.
func InstrumentStorage(next schools.Storage, metrics *Metrics, backend string) *InstrumentedStorage {
	return &InstrumentedStorage{next: next, metrics: metrics, backend: backend}
}

// Unwrap returns the decorated storage
func (s *InstrumentedStorage) Unwrap() schools.Storage {
	return s.next
}

func (s *InstrumentedStorage) ListSchools(ctx context.Context) ([]*schools.School, error) {
	start := time.Now()
	list, err := s.next.ListSchools(ctx)
	s.observe("list", start, err)
	return list, err
}

func (s *InstrumentedStorage) CreateSchool(ctx context.Context, school *schools.School) (int64, error) {
	start := time.Now()
	id, err := s.next.CreateSchool(ctx, school)
	s.observe("create", start, err)
	if err == nil {
		s.metrics.SchoolsCreatedTotal.Inc()
	}
	return id, err
}

func (s *InstrumentedStorage) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := s.next.HealthCheck(ctx)
	s.observe("health", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStorage) observe(op string, start time.Time, err error) {
	s.metrics.StorageOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		s.metrics.StorageErrorsTotal.WithLabelValues(op, s.backend, errorType(err)).Inc()
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, schools.ErrConnection):
		return "connection"
	case errors.Is(err, schools.ErrIO):
		return "io"
	case errors.Is(err, schools.ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}
