// Package validation provides request validation and the ValidationError kind
// shared by every service: bad input or an unmet precondition that the caller
// can fix, never a system fault.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Error is a single validation failure.
type Error struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// New returns a validation error that is not tied to a field.
func New(reason string) *Error {
	return &Error{Reason: reason}
}

// Newf formats a validation error that is not tied to a field.
func Newf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// RequestError collects the field errors of one struct.
type RequestError struct {
	Errors []Error
}

func (e *RequestError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Errors))
	for i := range e.Errors {
		msgs[i] = e.Errors[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Is reports whether err is a validation failure of either kind.
func Is(err error) bool {
	var fe *Error
	var re *RequestError
	return errors.As(err, &fe) || errors.As(err, &re)
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON name when they have one.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate` tags. It returns nil or a
// *RequestError.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Errors: []Error{{Reason: err.Error()}}}
	}

	out := make([]Error, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = Error{Field: fe.Field(), Reason: translate(fe)}
	}
	return &RequestError{Errors: out}
}

func translate(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
