package observability

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/schoolreg/pkg/schools"
)

type stubStorage struct {
	list      []*schools.School
	listErr   error
	createErr error
	healthErr error
	closed    bool
}

func (s *stubStorage) ListSchools(ctx context.Context) ([]*schools.School, error) {
	return s.list, s.listErr
}

func (s *stubStorage) CreateSchool(ctx context.Context, school *schools.School) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	return 7, nil
}

func (s *stubStorage) HealthCheck(ctx context.Context) error {
	return s.healthErr
}

func (s *stubStorage) Close() error {
	s.closed = true
	return nil
}

func TestInstrumentStorage(t *testing.T) {
	t.Run("records successful operations", func(t *testing.T) {
		metrics := NewMetrics(prometheus.NewRegistry())
		next := &stubStorage{list: []*schools.School{{ID: 1}}}
		s := InstrumentStorage(next, metrics, "filesystem")

		list, err := s.ListSchools(context.Background())
		require.NoError(t, err)
		assert.Len(t, list, 1)

		id, err := s.CreateSchool(context.Background(), &schools.School{Name: "Lincoln High"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)

		expected := `
# HELP schools_storage_operations_total Total number of storage operations
# TYPE schools_storage_operations_total counter
schools_storage_operations_total{backend="filesystem",operation="create",status="success"} 1
schools_storage_operations_total{backend="filesystem",operation="list",status="success"} 1
`
		assert.NoError(t, testutil.CollectAndCompare(metrics.StorageOperationsTotal, strings.NewReader(expected)))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SchoolsCreatedTotal))
		assert.Equal(t, 0, testutil.CollectAndCount(metrics.StorageErrorsTotal))
	})

	t.Run("classifies failures", func(t *testing.T) {
		metrics := NewMetrics(prometheus.NewRegistry())
		next := &stubStorage{
			listErr:   fmt.Errorf("%w: query: refused", schools.ErrConnection),
			createErr: fmt.Errorf("%w: write: disk full", schools.ErrIO),
			healthErr: context.DeadlineExceeded,
		}
		s := InstrumentStorage(next, metrics, "relational")

		_, err := s.ListSchools(context.Background())
		assert.ErrorIs(t, err, schools.ErrConnection)
		_, err = s.CreateSchool(context.Background(), &schools.School{})
		assert.ErrorIs(t, err, schools.ErrIO)
		assert.Error(t, s.HealthCheck(context.Background()))

		expected := `
# HELP schools_storage_errors_total Total number of storage errors
# TYPE schools_storage_errors_total counter
schools_storage_errors_total{backend="relational",error_type="canceled",operation="health"} 1
schools_storage_errors_total{backend="relational",error_type="connection",operation="list"} 1
schools_storage_errors_total{backend="relational",error_type="io",operation="create"} 1
`
		assert.NoError(t, testutil.CollectAndCompare(metrics.StorageErrorsTotal, strings.NewReader(expected)))
		assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SchoolsCreatedTotal))
	})

	t.Run("close and unwrap reach the wrapped storage", func(t *testing.T) {
		next := &stubStorage{}
		s := InstrumentStorage(next, NewMetrics(prometheus.NewRegistry()), "filesystem")

		assert.Same(t, next, s.Unwrap())
		require.NoError(t, s.Close())
		assert.True(t, next.closed)
	})
}
