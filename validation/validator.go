package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/riskintel/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects failed checks so a caller can report them all at once.
type Validator struct {
	errs []FieldError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

// Errors returns the failed checks in the order they were recorded.
func (v *Validator) Errors() []FieldError { return v.errs }

// Required fails when value is blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Unique fails once for every repeated value.
func (v *Validator) Unique(field string, values []string) *Validator {
	seen := make(map[string]struct{}, len(values))
	for _, val := range values {
		if _, dup := seen[val]; dup {
			v.AddError(field, fmt.Sprintf("duplicate value %q", val))
		}
		seen[val] = struct{}{}
	}
	return v
}

// Validate returns nil when every check passed, else an INVALID_INPUT error
// whose message joins the failures and whose "fields" detail lists them.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, len(v.errs))
	for i, e := range v.errs {
		parts[i] = e.Field + ": " + e.Message
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", v.errs)
}
