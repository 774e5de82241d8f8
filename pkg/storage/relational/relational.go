package relational

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage"
)

// schemaTimeout bounds the shared table creation
const schemaTimeout = 30 * time.Second

// Storage implements schools.Storage on a SQL table
type Storage struct {
	db      *sql.DB
	dialect Dialect

	schemaReady atomic.Bool
	schemaGroup singleflight.Group
}

// NewStorage wraps an open database. The schools table is created lazily on
// first use.
func NewStorage(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{
		db:      db,
		dialect: dialect,
	}
}

// Open connects using storage configuration and ensures the schema exists
// before returning.
func Open(ctx context.Context, cfg storage.Config) (*Storage, error) {
	connCfg, err := NewConnectionConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(connCfg)
	if err != nil {
		return nil, err
	}

	s := NewStorage(db, connCfg.Dialect)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying pool, e.g. for stats collection
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect in use
func (s *Storage) Dialect() Dialect {
	return s.dialect
}

// EnsureSchema creates the schools table if it does not exist. Concurrent
// first callers share a single execution; after one success every later call
// returns immediately. A failure leaves the flag unset so the next call
// retries.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if s.schemaReady.Load() {
		return nil
	}

	_, err, _ := s.schemaGroup.Do("schema", func() (interface{}, error) {
		if s.schemaReady.Load() {
			return nil, nil
		}
		// Shared by every waiter, so one caller going away must not fail the rest.
		execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), schemaTimeout)
		defer cancel()
		if _, err := s.db.ExecContext(execCtx, s.dialect.createTable); err != nil {
			return nil, fmt.Errorf("%w: failed to ensure schools table: %w", schools.ErrConnection, err)
		}
		s.schemaReady.Store(true)
		return nil, nil
	})
	return err
}

// ListSchools implements schools.Storage.ListSchools
func (s *Storage) ListSchools(ctx context.Context) ([]*schools.School, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.list)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list schools: %w", schools.ErrConnection, err)
	}
	defer rows.Close()

	list := make([]*schools.School, 0)
	for rows.Next() {
		var (
			school  schools.School
			contact sql.NullInt64
			image   sql.NullString
			email   sql.NullString
		)
		err := rows.Scan(
			&school.ID,
			&school.Name,
			&school.Address,
			&school.City,
			&school.State,
			&contact,
			&image,
			&email,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan school: %w", schools.ErrConnection, err)
		}

		if contact.Valid {
			v := contact.Int64
			school.Contact = &v
		}
		if image.Valid {
			v := image.String
			school.Image = &v
		}
		school.EmailID = email.String

		list = append(list, &school)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate schools: %w", schools.ErrConnection, err)
	}

	return list, nil
}

// CreateSchool implements schools.Storage.CreateSchool
func (s *Storage) CreateSchool(ctx context.Context, school *schools.School) (int64, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	args := []interface{}{
		school.Name,
		school.Address,
		school.City,
		school.State,
		nullableInt64(school.Contact),
		nullableString(school.Image),
		school.EmailID,
	}

	var id int64
	if s.dialect.returning {
		if err := s.db.QueryRowContext(ctx, s.dialect.insert, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("%w: failed to create school: %w", schools.ErrConnection, err)
		}
	} else {
		result, err := s.db.ExecContext(ctx, s.dialect.insert, args...)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to create school: %w", schools.ErrConnection, err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: failed to read inserted id: %w", schools.ErrConnection, err)
		}
	}

	school.ID = id
	return id, nil
}

// HealthCheck implements schools.Storage.HealthCheck
func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: database unhealthy: %w", schools.ErrConnection, err)
	}
	return nil
}

// Close implements schools.Storage.Close
func (s *Storage) Close() error {
	return s.db.Close()
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
