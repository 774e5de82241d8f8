// Package validation normalizes and validates submitted school records.
//
// Text fields are trimmed before the rules run:
//
//   - name: required, at least 2 characters
//   - address: required, at least 5 characters
//   - city, state: required
//   - email_id: optional, must be a valid address when present
//
// A contact of 7 to 15 digits is stored as a number; any other value is
// dropped to null rather than rejected.
//
// Every failing field is reported at once in a *ValidationError, which
// matches schools.ErrValidation with errors.Is.
package validation
