package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/platinummonkey/schoolreg/pkg/observability"
	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/upload"
	"github.com/platinummonkey/schoolreg/pkg/validation"
)

// SchoolService runs a submission through upload parsing, validation and
// storage, and lists stored records.
type SchoolService struct {
	storage   schools.Storage
	uploads   *upload.Handler
	validator *validation.Validator
	metrics   *observability.Metrics
}

// NewSchoolService creates the service. metrics may be nil.
func NewSchoolService(storage schools.Storage, uploads *upload.Handler, validator *validation.Validator, metrics *observability.Metrics) *SchoolService {
	return &SchoolService{
		storage:   storage,
		uploads:   uploads,
		validator: validator,
		metrics:   metrics,
	}
}

// List returns every school, newest first
func (s *SchoolService) List(ctx context.Context) ([]*schools.School, error) {
	list, err := s.storage.ListSchools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	if list == nil {
		list = []*schools.School{}
	}
	return list, nil
}

// Create stores the submitted school and returns its id. The uploaded
// image, if any, is removed again when the record is not persisted.
func (s *SchoolService) Create(r *http.Request) (int64, error) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	form, err := s.uploads.Parse(r)
	if err != nil {
		s.countUpload("rejected")
		return 0, err
	}
	if form.Image != nil {
		s.countUpload("stored")
		if s.metrics != nil {
			s.metrics.UploadSizeBytes.Observe(float64(form.Image.Size))
		}
	}

	school, err := s.validator.Validate(form.Fields)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ValidationFailuresTotal.Inc()
		}
		s.discard(logger, form.Image)
		return 0, err
	}

	if form.Image != nil {
		publicPath := form.Image.PublicPath
		school.Image = &publicPath
	}

	id, err := s.storage.CreateSchool(ctx, school)
	if err != nil {
		s.discard(logger, form.Image)
		return 0, fmt.Errorf("create school: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"school_id": id,
		"has_image": school.Image != nil,
	}).Info("School created")

	return id, nil
}

func (s *SchoolService) discard(logger *observability.Logger, img *upload.StoredImage) {
	if img == nil {
		return
	}
	if err := img.Remove(); err != nil {
		logger.WithError(err).WithField("path", img.Path).Warn("Failed to remove orphaned upload")
	}
}

func (s *SchoolService) countUpload(result string) {
	if s.metrics != nil {
		s.metrics.UploadsTotal.WithLabelValues(result).Inc()
	}
}
