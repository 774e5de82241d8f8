package backend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/schoolreg/pkg/observability"
	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage"
	"github.com/platinummonkey/schoolreg/pkg/storage/relational"
)

func TestSelect(t *testing.T) {
	full := storage.Config{DBHost: "db", DBUser: "app", DBPassword: "secret", DBName: "schools"}

	tests := []struct {
		name   string
		mutate func(*storage.Config)
		want   Kind
	}{
		{"all four params", func(c *storage.Config) {}, KindRelational},
		{"no params", func(c *storage.Config) { *c = storage.Config{} }, KindFileSystem},
		{"missing host", func(c *storage.Config) { c.DBHost = "" }, KindFileSystem},
		{"missing user", func(c *storage.Config) { c.DBUser = "" }, KindFileSystem},
		{"missing password", func(c *storage.Config) { c.DBPassword = "" }, KindFileSystem},
		{"missing database", func(c *storage.Config) { c.DBName = "" }, KindFileSystem},
		{"whitespace host", func(c *storage.Config) { c.DBHost = "   " }, KindFileSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			assert.Equal(t, tt.want, Select(cfg))
		})
	}
}

func TestOpen_FileSystem(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	cfg := storage.DefaultConfig()
	cfg.DataFile = filepath.Join(t.TempDir(), "data", "schools.json")

	store, kind, err := Open(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, KindFileSystem, kind)
	assert.IsType(t, &storage.FileSystemStorage{}, store)

	_, err = os.Stat(cfg.DataFile)
	assert.NoError(t, err, "data file should be created on open")
	assert.NotContains(t, buf.String(), "incomplete")
}

func TestOpen_PartialConfigWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	cfg := storage.DefaultConfig()
	cfg.DataFile = filepath.Join(t.TempDir(), "schools.json")
	cfg.DBHost = "db.internal"
	cfg.DBUser = "app"

	store, kind, err := Open(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, KindFileSystem, kind)

	var warning string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"level":"warning"`) {
			warning = line
		}
	}
	require.NotEmpty(t, warning, "expected a warning line, got %s", buf.String())
	assert.Contains(t, warning, "password,database")
}

func TestOpen_Relational(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})

	t.Run("sqlite", func(t *testing.T) {
		cfg := storage.DefaultConfig()
		cfg.DBDriver = "sqlite3"
		cfg.DBHost = "localhost"
		cfg.DBUser = "app"
		cfg.DBPassword = "unused"
		cfg.DBName = filepath.Join(t.TempDir(), "schools.db")

		store, kind, err := Open(context.Background(), cfg, logger)
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, KindRelational, kind)
		assert.IsType(t, &relational.Storage{}, store)

		id, err := store.CreateSchool(context.Background(), &schools.School{
			Name: "Lincoln High", Address: "12 Elm Street", City: "Springfield", State: "IL",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
	})

	t.Run("unreachable server fails", func(t *testing.T) {
		cfg := storage.DefaultConfig()
		cfg.DBDriver = "postgres"
		cfg.DBHost = "127.0.0.1"
		cfg.DBPort = "1"
		cfg.DBUser = "app"
		cfg.DBPassword = "secret"
		cfg.DBName = "schools"
		cfg.DBTimeout = 500 * time.Millisecond

		_, kind, err := Open(context.Background(), cfg, logger)
		assert.Equal(t, KindRelational, kind)
		assert.ErrorIs(t, err, schools.ErrConnection)
	})
}
