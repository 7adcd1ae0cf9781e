// internal/validate/validate.go
//
// Request validation on top of go-playground/validator.
//
// Context
// -------
// Mutation inputs carry `validate:"…"` tags.  Struct runs the shared
// validator and converts its ValidationErrors into *Error, a flat list of
// field/message pairs the HTTP layer renders as a 400 body.  Services add
// their own business-rule failures with Field, so callers see one error
// shape regardless of where the check ran.
//
// Notes
// -----
//   - Field names come from the `json` tag so messages match the request.
//   - IsValidation lets callers tell user input errors from system failures.

package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned for malformed input.
type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds a single-field Error.
func Field(name, msg string) *Error {
	return &Error{Fields: []FieldError{{Field: name, Message: msg}}}
}

// IsValidation reports whether err wraps an *Error.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct validates s and returns *Error on failure.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
