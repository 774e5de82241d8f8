package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/upload"
	"github.com/platinummonkey/schoolreg/pkg/validation"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// mockStorage is an in-memory schools.Storage for handler tests
type mockStorage struct {
	mu      sync.Mutex
	schools []*schools.School

	listError   error
	createError error
	healthError error
}

func newMockStorage() *mockStorage {
	return &mockStorage{}
}

func (m *mockStorage) ListSchools(ctx context.Context) ([]*schools.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listError != nil {
		return nil, m.listError
	}
	out := make([]*schools.School, len(m.schools))
	copy(out, m.schools)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockStorage) CreateSchool(ctx context.Context, school *schools.School) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return 0, m.createError
	}
	record := *school
	record.ID = int64(len(m.schools) + 1)
	m.schools = append(m.schools, &record)
	return record.ID, nil
}

func (m *mockStorage) HealthCheck(ctx context.Context) error {
	return m.healthError
}

func (m *mockStorage) Close() error {
	return nil
}

func (m *mockStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schools)
}

type testEnv struct {
	storage  schools.Storage
	service  *SchoolService
	server   *Server
	imageDir string
}

func newTestEnv(t *testing.T, storage schools.Storage) *testEnv {
	t.Helper()

	imageDir := filepath.Join(t.TempDir(), "public", "schoolImages")
	service := NewSchoolService(storage, upload.NewHandler(imageDir, schools.PublicImagePrefix), validation.NewValidator(), nil)

	return &testEnv{
		storage:  storage,
		service:  service,
		server:   NewServer(Options{Service: service, ImageDir: imageDir}),
		imageDir: imageDir,
	}
}

func (e *testEnv) imageFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.imageDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

type imagePart struct {
	filename    string
	contentType string
	body        []byte
}

func validSchoolFields() map[string]string {
	return map[string]string{
		"name":     "Lincoln High",
		"address":  "12 Elm Street",
		"city":     "Springfield",
		"state":    "IL",
		"contact":  "5551234567",
		"email_id": "office@lincoln.edu",
	}
}

func newCreateRequest(t *testing.T, fields map[string]string, image *imagePart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, image.filename))
		h.Set("Content-Type", image.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/schools", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
