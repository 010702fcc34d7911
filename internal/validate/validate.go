// Package validate wraps struct validation for request payloads and maps
// failures onto the service's invalid-argument error kind.
package validate

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"safetrack.org/internal/guard"
)

var v = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// RFC 3339 timestamp carried as a string field.
	v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		if s == "" {
			return true // pair with required when the field is mandatory
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	})
	// JSON field names in error messages instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates the tagged payload and reports the first violation as an
// invalid-argument error naming the offending field.
func Struct(data any) error {
	err := v.Struct(data)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return guard.InvalidArgument("request", "malformed payload")
	}
	first := verrs[0]
	return guard.InvalidArgument(first.Field(), reasonFor(first))
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "rfc3339":
		return "must be an RFC 3339 timestamp"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
