package schools

import "context"

// Storage is the persistence contract shared by every backend.
//
// Implementations must be safe for concurrent use. CreateSchool either stores
// the full record and returns its id, or stores nothing.
type Storage interface {
	// ListSchools returns all schools ordered by id, descending.
	ListSchools(ctx context.Context) ([]*School, error)

	// CreateSchool persists school and returns the id assigned by the backend.
	// The ID field of the argument is ignored and overwritten on success.
	CreateSchool(ctx context.Context, school *School) (int64, error)

	// HealthCheck reports whether the backend can currently serve requests.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
