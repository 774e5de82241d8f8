package api

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/schoolreg/pkg/httputil"
	"github.com/platinummonkey/schoolreg/pkg/observability"
	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/upload"
)

// formOverhead is added to the image limit to bound the whole request body
const formOverhead int64 = 1 << 20

// Options configures a Server
type Options struct {
	Service        *SchoolService
	Health         *observability.HealthChecker // optional
	Metrics        *observability.Metrics       // optional
	MetricsHandler http.Handler                 // optional, served at /metrics
	ImageDir       string                       // served under schools.PublicImagePrefix
	MaxBodyBytes   int64
}

// Server represents our API server
type Server struct {
	service      *SchoolService
	router       *mux.Router
	health       *observability.HealthChecker
	metrics      http.Handler
	imageDir     string
	maxBodyBytes int64
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		service:      opts.Service,
		router:       mux.NewRouter(),
		health:       opts.Health,
		metrics:      opts.MetricsHandler,
		imageDir:     opts.ImageDir,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = upload.DefaultMaxFileSize + formOverhead
	}

	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/schools", s.listSchools).Methods(http.MethodGet)
	s.router.Handle("/schools", httputil.MaxBytesMiddleware(s.maxBodyBytes)(http.HandlerFunc(s.createSchool))).
		Methods(http.MethodPost)
	// Any other method on the collection.
	s.router.HandleFunc("/schools", s.methodNotAllowed)

	if s.imageDir != "" {
		prefix := schools.PublicImagePrefix + "/"
		s.router.PathPrefix(prefix).
			Handler(staticImageHeaders(http.StripPrefix(prefix, http.FileServer(fileOnlyFS{http.Dir(s.imageDir)})))).
			Methods(http.MethodGet, http.MethodHead)
	}

	if s.health != nil {
		s.router.HandleFunc("/healthz", s.health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/readyz", s.health.Readiness).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "not found")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) listSchools(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, msgListFailed)
		return
	}
	httputil.WriteSuccess(w, ListSchoolsResponse{Schools: list})
}

func (s *Server) createSchool(w http.ResponseWriter, r *http.Request) {
	id, err := s.service.Create(r)
	if err != nil {
		writeServiceError(w, r, err, msgCreateFailed)
		return
	}
	httputil.WriteCreated(w, CreateSchoolResponse{ID: id})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteMethodNotAllowed(w, http.MethodGet, http.MethodPost)
}

// writeServiceError maps service errors to responses. Caller-correctable
// errors are returned verbatim; everything else is logged and replaced by
// fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, schools.ErrValidation),
		errors.Is(err, upload.ErrUploadTooLarge),
		errors.Is(err, upload.ErrInvalidUploadType),
		errors.Is(err, upload.ErrMalformedForm):
		httputil.WriteBadRequest(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error(fallback)
		httputil.WriteInternalError(w, fallback)
	}
}

// staticImageHeaders stops browsers from sniffing or executing uploaded files
func staticImageHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		next.ServeHTTP(w, r)
	})
}

// fileOnlyFS hides directories so the image prefix cannot be listed
type fileOnlyFS struct {
	fs http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	if strings.HasSuffix(name, "/") {
		return nil, os.ErrNotExist
	}
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
