package validation

import (
	"regexp"
	"strconv"
	"strings"
)

var contactPattern = regexp.MustCompile(`^\d{7,15}$`)

// Normalizer canonicalizes raw form values before validation
type Normalizer struct {
	trimmed []string
}

// NewNormalizer returns a normalizer trimming the given field names
func NewNormalizer(trimmed ...string) *Normalizer {
	return &Normalizer{trimmed: trimmed}
}

// Normalize returns a copy of fields with the configured fields trimmed.
// Absent fields come back as empty strings.
func (n *Normalizer) Normalize(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+len(n.trimmed))
	for k, v := range fields {
		out[k] = v
	}
	for _, name := range n.trimmed {
		out[name] = strings.TrimSpace(fields[name])
	}
	return out
}

// NormalizeContact converts a phone number of 7 to 15 digits into its
// numeric form. Anything else, including empty input, yields nil.
func NormalizeContact(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if !contactPattern.MatchString(raw) {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
