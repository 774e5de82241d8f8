package upload

import "errors"

var (
	// ErrUploadTooLarge is returned when the image or the request body
	// exceeds the configured limit.
	ErrUploadTooLarge = errors.New("uploaded file is too large")

	// ErrInvalidUploadType is returned for a file that is not an image, or
	// for more than one image in a single request.
	ErrInvalidUploadType = errors.New("invalid upload type")

	// ErrMalformedForm is returned when the request body cannot be read as a form.
	ErrMalformedForm = errors.New("malformed form")
)
