package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/platinummonkey/schoolreg/pkg/schools"
)

// FileSystemStorage implements schools.Storage on top of a single JSON array
// document. Writers hold mu exclusively across read-modify-write; every write
// replaces the document with an atomic rename so readers only ever see a
// complete file.
type FileSystemStorage struct {
	path string
	mu   sync.RWMutex
}

// NewFileSystemStorage creates a new filesystem-based storage, creating the
// containing directory and an empty document if they do not exist yet.
func NewFileSystemStorage(path string) (*FileSystemStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: data file path is required", schools.ErrIO)
	}
	s := &FileSystemStorage{path: path}
	if err := s.ensureDocument(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing document.
func (s *FileSystemStorage) Path() string {
	return s.path
}

func (s *FileSystemStorage) ensureDocument() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to stat data file: %w", schools.ErrIO, err)
	}
	return s.write([]*schools.School{})
}

// ListSchools implements schools.Storage.ListSchools
func (s *FileSystemStorage) ListSchools(ctx context.Context) ([]*schools.School, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	list, err := s.read()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	schools.SortByIDDesc(list)
	return list, nil
}

// CreateSchool implements schools.Storage.CreateSchool
func (s *FileSystemStorage) CreateSchool(ctx context.Context, school *schools.School) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return 0, err
	}

	record := *school
	record.ID = nextID(list)
	list = append(list, &record)

	if err := s.write(list); err != nil {
		return 0, err
	}

	school.ID = record.ID
	return record.ID, nil
}

// HealthCheck implements schools.Storage.HealthCheck
func (s *FileSystemStorage) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.read()
	return err
}

// Close implements schools.Storage.Close
func (s *FileSystemStorage) Close() error {
	return nil
}

// nextID tolerates gaps left by out-of-band edits: it is always one past the
// highest id present.
func nextID(list []*schools.School) int64 {
	var highest int64
	for _, school := range list {
		if school.ID > highest {
			highest = school.ID
		}
	}
	return highest + 1
}

func (s *FileSystemStorage) read() ([]*schools.School, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*schools.School{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read data file: %w", schools.ErrIO, err)
	}

	// A zero-length document is what an interrupted first write leaves behind.
	if len(bytes.TrimSpace(data)) == 0 {
		return []*schools.School{}, nil
	}

	var list []*schools.School
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal schools: %w", schools.ErrIO, err)
	}
	if list == nil {
		list = []*schools.School{}
	}
	return list, nil
}

func (s *FileSystemStorage) write(list []*schools.School) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal schools: %w", schools.ErrIO, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %w", schools.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", schools.ErrIO, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write data file: %w", schools.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync data file: %w", schools.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close data file: %w", schools.ErrIO, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: failed to set data file mode: %w", schools.ErrIO, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: failed to replace data file: %w", schools.ErrIO, err)
	}

	committed = true
	return nil
}
