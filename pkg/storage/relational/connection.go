package relational

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage"
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Dialect     Dialect
	DSN         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// NewConnectionConfig derives a ConnectionConfig from storage configuration
func NewConnectionConfig(cfg storage.Config) (ConnectionConfig, error) {
	dialect, err := DialectFor(cfg.DBDriver)
	if err != nil {
		return ConnectionConfig{}, err
	}

	dsn, err := BuildDSN(dialect, cfg)
	if err != nil {
		return ConnectionConfig{}, err
	}

	return ConnectionConfig{
		Dialect:     dialect,
		DSN:         dsn,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		Timeout:     cfg.DBTimeout,
		MaxLifetime: cfg.DBMaxLifetime,
		MaxIdleTime: cfg.DBMaxIdleTime,
	}, nil
}

// BuildDSN renders the driver-specific data source name
func BuildDSN(dialect Dialect, cfg storage.Config) (string, error) {
	switch dialect.Driver {
	case MySQL.Driver:
		mc := mysql.NewConfig()
		mc.User = cfg.DBUser
		mc.Passwd = cfg.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.DBHost, portOrDefault(cfg.DBPort, "3306"))
		mc.DBName = cfg.DBName
		mc.ParseTime = true
		return mc.FormatDSN(), nil

	case Postgres.Driver:
		sslMode := cfg.DBSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
			Host:     net.JoinHostPort(cfg.DBHost, portOrDefault(cfg.DBPort, "5432")),
			Path:     "/" + cfg.DBName,
			RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
		}
		return u.String(), nil

	case SQLite.Driver:
		// host/user/password are meaningless for an embedded database; the
		// database name is the file path.
		return "file:" + cfg.DBName + "?_busy_timeout=5000", nil

	default:
		return "", fmt.Errorf("unsupported database driver %q", dialect.Driver)
	}
}

func portOrDefault(port, def string) string {
	if port == "" {
		return def
	}
	return port
}

// OpenDB opens a pooled connection and verifies it with a ping
func OpenDB(config ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open(config.Dialect.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open connection: %w", schools.ErrConnection, err)
	}

	configurePool(db, config)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", schools.ErrConnection, err)
	}

	return db, nil
}

func configurePool(db *sql.DB, config ConnectionConfig) {
	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		db.SetMaxIdleConns(config.MinConns)
	}
	db.SetConnMaxLifetime(config.MaxLifetime)
	db.SetConnMaxIdleTime(config.MaxIdleTime)
}
