package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/platinummonkey/schoolreg/pkg/schools"
)

// Form field names
const (
	FieldName    = "name"
	FieldAddress = "address"
	FieldCity    = "city"
	FieldState   = "state"
	FieldContact = "contact"
	FieldEmail   = "email_id"
)

// submission carries the rules for a new school record
type submission struct {
	Name    string `form:"name" validate:"required,min=2"`
	Address string `form:"address" validate:"required,min=5"`
	City    string `form:"city" validate:"required"`
	State   string `form:"state" validate:"required"`
	EmailID string `form:"email_id" validate:"omitempty,email"`
}

// Validator turns raw form fields into a canonical school record
type Validator struct {
	validate   *validator.Validate
	normalizer *Normalizer
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})

	return &Validator{
		validate:   v,
		normalizer: NewNormalizer(FieldName, FieldAddress, FieldCity, FieldState, FieldEmail),
	}
}

// FieldError describes one rejected field
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e FieldError) String() string {
	switch e.Rule {
	case "required":
		return e.Field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field, e.Param)
	case "email":
		return e.Field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s", e.Field, e.Rule)
	}
}

// ValidationError lists every field that failed validation
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return "invalid school: " + strings.Join(msgs, "; ")
}

// Unwrap lets callers match schools.ErrValidation
func (e *ValidationError) Unwrap() error {
	return schools.ErrValidation
}

// FieldNames returns the names of the rejected fields in order
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// Validate normalizes fields and returns the record they describe. The
// record has no ID and no image.
func (v *Validator) Validate(fields map[string]string) (*schools.School, error) {
	normalized := v.normalizer.Normalize(fields)

	sub := submission{
		Name:    normalized[FieldName],
		Address: normalized[FieldAddress],
		City:    normalized[FieldCity],
		State:   normalized[FieldState],
		EmailID: normalized[FieldEmail],
	}

	if err := v.validate.Struct(sub); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, fmt.Errorf("validate school: %w", err)
		}
		out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{
				Field: fe.Field(),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		return nil, out
	}

	return &schools.School{
		Name:    sub.Name,
		Address: sub.Address,
		City:    sub.City,
		State:   sub.State,
		Contact: NormalizeContact(normalized[FieldContact]),
		EmailID: sub.EmailID,
	}, nil
}
