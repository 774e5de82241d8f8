package schools

import "errors"

var (
	// ErrValidation marks caller-correctable input errors.
	ErrValidation = errors.New("validation failed")

	// ErrIO marks failures reading or writing the school document file.
	ErrIO = errors.New("school store i/o error")

	// ErrConnection marks relational backend failures (unreachable database,
	// failed query or statement).
	ErrConnection = errors.New("school store connection error")
)
