// Package validation wraps go-playground/validator with messages keyed by
// JSON field names, suitable for returning to API clients.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

var messages = map[string]string{
	"required":  "The field '%s' is required.",
	"email":     "The field '%s' must be a valid email address.",
	"min":       "The field '%s' must be at least %s characters long.",
	"max":       "The field '%s' must be no longer than %s characters.",
	"min_items": "The field '%s' must contain at least %s items.",
	"max_items": "The field '%s' must contain at most %s items.",
	"gte":       "The field '%s' must be greater than or equal to %s.",
	"lte":       "The field '%s' must be less than or equal to %s.",
	"datetime":  "The field '%s' must be a date in the format %s.",
}

func message(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()
	if e.Kind() == reflect.Slice && (tag == "min" || tag == "max") {
		tag += "_items"
	}
	msg, ok := messages[tag]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", field, tag)
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, field, e.Param())
	}
	return fmt.Sprintf(msg, field)
}

// Struct validates s according to its `validate` tags and returns messages
// keyed by the JSON path of each failing field (e.g. "places[2].external_id").
// A nil or empty map means s is valid.
func Struct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[fieldPath(e.Namespace())] = message(e)
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
