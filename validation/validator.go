package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/kbukum/reqkit/errors"
)

// Methods lists the HTTP methods a client may send.
var Methods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodTrace,
	http.MethodConnect,
}

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Err returns an INVALID_REQUEST error describing every collected problem,
// or nil.
func (v *Validator) Err(req *http.Request) error {
	if !v.HasErrors() {
		return nil
	}
	e := errors.InvalidRequest(req, joinFieldErrors(v.errors))
	e.Details = map[string]any{"fields": v.errors}
	return e
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OneOf checks if a value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// URL checks that value is an absolute URL with one of schemes
// (http and https when none are given).
func (v *Validator) URL(field, value string, schemes ...string) *Validator {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	u, err := url.Parse(value)
	switch {
	case err != nil:
		v.AddError(field, "must be a valid URL")
	case !u.IsAbs() || u.Host == "":
		v.AddError(field, "must be an absolute URL")
	case !slices.Contains(schemes, strings.ToLower(u.Scheme)):
		v.AddError(field, fmt.Sprintf("scheme must be one of: %s", strings.Join(schemes, ", ")))
	}
	return v
}

// Range checks if a number is within a range.
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

func joinFieldErrors(fields []FieldError) string {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = e.Field + ": " + e.Message
	}
	return strings.Join(messages, "; ")
}
