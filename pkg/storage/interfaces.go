package storage

import (
	"strings"
	"time"
)

// Config for storage backends
type Config struct {
	// Filesystem config
	DataFile string // JSON document holding every school record

	// Relational config. All of DBHost, DBUser, DBPassword and DBName must be
	// set for the relational backend to be selected.
	DBDriver      string // "mysql", "postgres" or "sqlite3"
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string // postgres only
	DBMaxConns    int
	DBMinConns    int
	DBTimeout     time.Duration
	DBMaxLifetime time.Duration
	DBMaxIdleTime time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		DataFile:      "data/schools.json",
		DBDriver:      "mysql",
		DBMaxConns:    10,
		DBMinConns:    2,
		DBTimeout:     10 * time.Second,
		DBMaxLifetime: 1 * time.Hour,
		DBMaxIdleTime: 10 * time.Minute,
	}
}

// MissingRelationalParams returns the names of the required connection
// parameters that are empty. An empty result means the relational backend
// is fully configured.
func (c Config) MissingRelationalParams() []string {
	var missing []string
	if strings.TrimSpace(c.DBHost) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(c.DBUser) == "" {
		missing = append(missing, "user")
	}
	if strings.TrimSpace(c.DBPassword) == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(c.DBName) == "" {
		missing = append(missing, "database")
	}
	return missing
}

// HasRelationalParams reports whether all four connection parameters are set.
func (c Config) HasRelationalParams() bool {
	return len(c.MissingRelationalParams()) == 0
}
