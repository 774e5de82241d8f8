// Package upload streams multipart school submissions, storing the optional
// image under a collision-free name in the public upload directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// DefaultFieldName is the form field carrying the image
	DefaultFieldName = "image"
	// DefaultMaxFileSize is the image size limit (5 MiB)
	DefaultMaxFileSize int64 = 5 << 20
	// DefaultMaxFieldSize caps each non-file form value
	DefaultMaxFieldSize int64 = 64 << 10

	sniffLen      = 3072
	createRetries = 5
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Handler parses multipart submissions
type Handler struct {
	UploadDir    string // directory images are written into, created on demand
	PublicPrefix string // URL prefix the directory is served under
	FieldName    string
	MaxFileSize  int64
	MaxFieldSize int64
}

// NewHandler returns a handler with default limits
func NewHandler(uploadDir, publicPrefix string) *Handler {
	return &Handler{
		UploadDir:    uploadDir,
		PublicPrefix: publicPrefix,
		FieldName:    DefaultFieldName,
		MaxFileSize:  DefaultMaxFileSize,
		MaxFieldSize: DefaultMaxFieldSize,
	}
}

// Form is the parsed submission
type Form struct {
	Fields map[string]string
	Image  *StoredImage // nil when no file was submitted
}

// StoredImage is an image written to the upload directory
type StoredImage struct {
	Path        string // filesystem path
	PublicPath  string // e.g. /schoolImages/<uuid>.png
	ContentType string // sniffed media type
	Size        int64
}

// Remove deletes the stored file. Removing an already-missing file is not an error.
func (s *StoredImage) Remove() error {
	if s == nil {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload %s: %w", s.Path, err)
	}
	return nil
}

// Parse streams the request body. Any image already written is removed when
// parsing fails.
func (h *Handler) Parse(r *http.Request) (form *Form, err error) {
	form = &Form{Fields: make(map[string]string)}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, classifyReadError(err)
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				form.Fields[key] = values[0]
			}
		}
		return form, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	defer func() {
		if err != nil && form != nil {
			form.Image.Remove()
			form = nil
		}
	}()

	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return form, classifyReadError(perr)
		}

		err = h.handlePart(form, part)
		part.Close()
		if err != nil {
			return form, err
		}
	}

	return form, nil
}

func (h *Handler) handlePart(form *Form, part *multipart.Part) error {
	name := part.FormName()
	if name == "" {
		return nil
	}

	if part.FileName() == "" && name != h.fieldName() {
		return h.readField(form, name, part)
	}

	declared := part.Header.Get("Content-Type")
	if !strings.HasPrefix(declared, "image/") && name != h.fieldName() {
		return fmt.Errorf("%w: field %q is not an image", ErrInvalidUploadType, name)
	}

	stored, err := h.storeFile(part)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}
	if form.Image != nil {
		stored.Remove()
		return fmt.Errorf("%w: only one image may be uploaded", ErrInvalidUploadType)
	}
	form.Image = stored
	return nil
}

func (h *Handler) readField(form *Form, name string, part *multipart.Part) error {
	limit := h.MaxFieldSize
	if limit <= 0 {
		limit = DefaultMaxFieldSize
	}

	value, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return classifyReadError(err)
	}
	if int64(len(value)) > limit {
		return fmt.Errorf("%w: field %q exceeds %d bytes", ErrMalformedForm, name, limit)
	}
	if _, seen := form.Fields[name]; !seen {
		form.Fields[name] = string(value)
	}
	return nil
}

// storeFile writes the part to the upload directory. It returns nil, nil for
// an empty part without a filename, which is how browsers send an unused
// file input.
func (h *Handler) storeFile(part *multipart.Part) (*StoredImage, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(part, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, classifyReadError(err)
	}
	head = head[:n]

	if n == 0 && part.FileName() == "" {
		return nil, nil
	}

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is not an image", ErrInvalidUploadType, detected.String())
	}
	// SVG can carry script and is served from our own origin.
	if detected.Is("image/svg+xml") {
		return nil, fmt.Errorf("%w: svg images are not accepted", ErrInvalidUploadType)
	}

	maxSize := h.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if int64(n) > maxSize {
		return nil, h.tooLarge(maxSize)
	}

	f, filename, err := h.createFile(fileExtension(part.FileName(), detected))
	if err != nil {
		return nil, err
	}

	stored := &StoredImage{
		Path:        f.Name(),
		PublicPath:  path.Join("/", h.PublicPrefix, filename),
		ContentType: detected.String(),
	}

	written, err := h.copyFile(f, head, part, maxSize)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close upload: %w", cerr)
	}
	if err != nil {
		stored.Remove()
		return nil, err
	}

	stored.Size = written
	return stored, nil
}

func (h *Handler) copyFile(f *os.File, head []byte, rest io.Reader, maxSize int64) (int64, error) {
	if _, err := f.Write(head); err != nil {
		return 0, fmt.Errorf("write upload: %w", err)
	}

	remaining := maxSize - int64(len(head))
	copied, err := io.Copy(f, io.LimitReader(rest, remaining+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return 0, h.tooLarge(maxSize)
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return 0, fmt.Errorf("write upload: %w", err)
		}
		return 0, classifyReadError(err)
	}
	if copied > remaining {
		return 0, h.tooLarge(maxSize)
	}
	return int64(len(head)) + copied, nil
}

func (h *Handler) createFile(ext string) (*os.File, string, error) {
	if err := os.MkdirAll(h.UploadDir, 0755); err != nil {
		return nil, "", fmt.Errorf("create upload directory: %w", err)
	}

	for i := 0; i < createRetries; i++ {
		filename := uuid.NewString() + ext
		f, err := os.OpenFile(filepath.Join(h.UploadDir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create upload file: %w", err)
		}
		return f, filename, nil
	}
	return nil, "", fmt.Errorf("create upload file: no free name after %d attempts", createRetries)
}

func (h *Handler) tooLarge(limit int64) error {
	return fmt.Errorf("%w: limit is %d MiB", ErrUploadTooLarge, limit>>20)
}

func (h *Handler) fieldName() string {
	if h.FieldName == "" {
		return DefaultFieldName
	}
	return h.FieldName
}

// fileExtension keeps the client's extension when it is plain alphanumeric,
// otherwise uses the one implied by the sniffed type.
func fileExtension(filename string, detected *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if extPattern.MatchString(ext) {
		return ext
	}
	return detected.Extension()
}

func classifyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", ErrUploadTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", ErrMalformedForm, err)
}
