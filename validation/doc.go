// Package validation checks client configuration and outgoing requests.
//
// Struct tag validation (go-playground/validator) covers configuration
// structs and reports failures as INVALID_CONFIG errors:
//
//	type Config struct {
//	    BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
//	    Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects request problems and reports them as
// INVALID_REQUEST errors:
//
//	v := validation.New()
//	v.OneOf("method", method, validation.Methods).URL("url", target)
//	err := v.Err(req)
package validation
