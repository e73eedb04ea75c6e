// Package validation validates configuration and API input.
//
// Struct tag validation uses go-playground/validator and reports field
// names by their json tag:
//
//	type Input struct {
//	    Type string `json:"type" validate:"required"`
//	}
//	err := validation.Validate(in)
//
// Programmatic checks collect every failure before returning:
//
//	v := validation.New()
//	v.Required("fallback_provider", cfg.Fallback)
//	v.Unique("providers.id", ids)
//	err := v.Validate()
package validation
