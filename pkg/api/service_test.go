package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage"
	"github.com/platinummonkey/schoolreg/pkg/upload"
	"github.com/platinummonkey/schoolreg/pkg/validation"
)

func TestSchoolService_Create(t *testing.T) {
	store := newMockStorage()
	env := newTestEnv(t, store)

	id, err := env.service.Create(newCreateRequest(t, validSchoolFields(), &imagePart{"campus.jpg", "image/jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	list, err := env.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Image)
	assert.Regexp(t, `^/schoolImages/[0-9a-f-]{36}\.jpg$`, *list[0].Image)
	assert.Len(t, env.imageFiles(t), 1)
}

func TestSchoolService_CreateErrors(t *testing.T) {
	t.Run("validation error is typed", func(t *testing.T) {
		env := newTestEnv(t, newMockStorage())

		fields := validSchoolFields()
		fields["email_id"] = "nope"
		_, err := env.service.Create(newCreateRequest(t, fields, nil))

		var verr *validation.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"email_id"}, verr.FieldNames())
		assert.True(t, errors.Is(err, schools.ErrValidation))
	})

	t.Run("upload error is returned as is", func(t *testing.T) {
		env := newTestEnv(t, newMockStorage())

		_, err := env.service.Create(newCreateRequest(t, validSchoolFields(), &imagePart{"a.txt", "text/plain", []byte("hello")}))
		assert.ErrorIs(t, err, upload.ErrInvalidUploadType)
	})

	t.Run("storage error keeps its class", func(t *testing.T) {
		store := newMockStorage()
		store.createError = fmt.Errorf("%w: insert: broken pipe", schools.ErrConnection)
		env := newTestEnv(t, store)

		_, err := env.service.Create(newCreateRequest(t, validSchoolFields(), &imagePart{"a.png", "image/png", pngBytes}))
		assert.ErrorIs(t, err, schools.ErrConnection)
		assert.Empty(t, env.imageFiles(t))
	})
}

func TestSchoolService_ListNeverNil(t *testing.T) {
	env := newTestEnv(t, &nilListStorage{mockStorage: newMockStorage()})

	list, err := env.service.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

type nilListStorage struct {
	*mockStorage
}

func (n *nilListStorage) ListSchools(ctx context.Context) ([]*schools.School, error) {
	return nil, nil
}

func TestSchoolService_ConcurrentCreatesOnFileStore(t *testing.T) {
	store, err := storage.NewFileSystemStorage(filepath.Join(t.TempDir(), "schools.json"))
	require.NoError(t, err)
	env := newTestEnv(t, store)

	const n = 30
	reqs := make([]*http.Request, n)
	for i := range reqs {
		fields := validSchoolFields()
		fields["name"] = fmt.Sprintf("School %02d", i)
		reqs[i] = newCreateRequest(t, fields, nil)
	}

	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req *http.Request) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			env.server.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusCreated, rec.Code)
		}(req)
	}
	wg.Wait()

	list, err := env.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, n)
	for i, school := range list {
		assert.Equal(t, int64(n-i), school.ID, "ids are 1..n in descending order")
	}
}
