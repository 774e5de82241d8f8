// Package backend decides once, at process start, which storage backend
// serves school records.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/schoolreg/pkg/observability"
	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage"
	"github.com/platinummonkey/schoolreg/pkg/storage/relational"
)

// Kind identifies a storage backend variant
type Kind string

const (
	KindFileSystem Kind = "filesystem"
	KindRelational Kind = "relational"
)

// Select returns KindRelational only when host, user, password and
// database are all configured.
func Select(cfg storage.Config) Kind {
	if cfg.HasRelationalParams() {
		return KindRelational
	}
	return KindFileSystem
}

// Open builds the single storage instance the process will use.
// A configured relational backend that cannot be reached is an error;
// there is no fallback to the file store.
func Open(ctx context.Context, cfg storage.Config, logger *observability.Logger) (schools.Storage, Kind, error) {
	kind := Select(cfg)

	switch kind {
	case KindRelational:
		store, err := relational.Open(ctx, cfg)
		if err != nil {
			return nil, kind, fmt.Errorf("open relational backend: %w", err)
		}
		logger.WithFields(map[string]interface{}{
			"backend": string(kind),
			"driver":  store.Dialect().Driver,
			"host":    cfg.DBHost,
			"db":      cfg.DBName,
		}).Info("Storage backend selected")
		return store, kind, nil

	default:
		missing := cfg.MissingRelationalParams()
		if len(missing) < 4 {
			logger.WithField("missing", strings.Join(missing, ",")).
				Warn("Database configuration incomplete, using file store")
		}

		store, err := storage.NewFileSystemStorage(cfg.DataFile)
		if err != nil {
			return nil, kind, fmt.Errorf("open file backend: %w", err)
		}
		logger.WithFields(map[string]interface{}{
			"backend": string(kind),
			"path":    store.Path(),
		}).Info("Storage backend selected")
		return store, kind, nil
	}
}
