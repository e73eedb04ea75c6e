package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/riskintel/errors"
)

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
})

// jsonName reports a field by its json tag, or its snake_case Go name.
func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return snakeCase(fld.Name)
	}
	return name
}

// Validate checks s against its `validate` tags and returns an INVALID_INPUT
// *errors.AppError listing every failing field, or nil.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Validation("validation failed")
	}

	v := New()
	for _, fe := range fieldErrs {
		v.AddError(fieldPath(fe), describe(fe))
	}
	return v.Validate()
}

// fieldPath drops the root struct name: "Config.providers[0].kind" becomes
// "providers[0].kind".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

var tagMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least ",
	"max":      "must be at most ",
	"gte":      "must be greater than or equal to ",
	"lte":      "must be less than or equal to ",
	"oneof":    "must be one of: ",
	"url":      "must be a valid URL",
	"dive":     "contains an invalid element",
}

func describe(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + fe.Param()
	}
	return msg
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
