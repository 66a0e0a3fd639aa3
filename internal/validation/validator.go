// Package validation validates decoded request bodies with struct tags.
//
// Validator implements echo.Validator, so handlers call c.Validate(&req)
// after binding. Failures come back as parkwatch EINVALID errors whose
// Fields are keyed by the JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dukerupert/parkwatch"
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator with the parkwatch tags registered:
// "district" accepts a catalog district name and "status" an incident
// status.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("district", func(fl validator.FieldLevel) bool {
		return parkwatch.IsKnownDistrict(fl.Field().String())
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, err := parkwatch.ParseIncidentStatus(fl.Field().String())
		return err == nil
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return parkwatch.Internal("validation failed", err)
	}
	return parkwatch.ErrorWithFields(FormatValidationErrors(verrs))
}

// WithMessage replaces the message of a validation error, keeping its
// fields. Other errors are returned unchanged.
func WithMessage(err error, message string) error {
	e, ok := err.(*parkwatch.Error)
	if !ok || e.Code != parkwatch.EINVALID {
		return err
	}
	out := *e
	out.Message = message
	return &out
}

// FormatValidationErrors maps each failing field to a readable message.
func FormatValidationErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		isString := fe.Kind() == reflect.String

		switch fe.Tag() {
		case "required":
			out[name] = "is required"
		case "email":
			out[name] = "must be a valid email address"
		case "min":
			if isString {
				out[name] = fmt.Sprintf("must be at least %s characters", fe.Param())
			} else {
				out[name] = fmt.Sprintf("must be at least %s", fe.Param())
			}
		case "max":
			if isString {
				out[name] = fmt.Sprintf("must be no more than %s characters", fe.Param())
			} else {
				out[name] = fmt.Sprintf("must be no more than %s", fe.Param())
			}
		case "gte":
			out[name] = fmt.Sprintf("must be greater than or equal to %s", fe.Param())
		case "lte":
			out[name] = fmt.Sprintf("must be less than or equal to %s", fe.Param())
		case "oneof":
			out[name] = fmt.Sprintf("must be one of: %s", fe.Param())
		case "district":
			out[name] = "must be a known district"
		case "status":
			out[name] = "must be a valid status"
		default:
			out[name] = fmt.Sprintf("failed validation: %s", fe.Tag())
		}
	}
	return out
}

// SanitizeInput trims s and strips control characters other than
// whitespace.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
}
