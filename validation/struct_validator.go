package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/reqkit/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their configuration key.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "yaml", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})
	})
	return validate
}

// Validate validates a configuration struct using struct tags and returns
// an INVALID_CONFIG error listing every failing field.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.InvalidConfig("validation failed: " + err.Error())
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldPath(e),
			Message: formatValidationError(e),
		})
	}

	appErr := errors.InvalidConfig(joinFieldErrors(fieldErrors))
	appErr.Details = map[string]any{"fields": fieldErrors}
	return appErr
}

// fieldPath returns the dotted configuration path without the root struct.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if", "required_with":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "url":
		return "must be a valid URL"
	case "http_url":
		return "must be a valid http(s) URL"
	case "hostname_port":
		return "must be host:port"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
