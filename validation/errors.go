package validation

import (
	"errors"
	"strings"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Errors is a list of field errors. It is returned as error only when
// non-empty.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the field errors carried by err, if any.
func Fields(err error) []FieldError {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

// HasField reports whether err carries an error for field.
func HasField(err error, field string) bool {
	for _, fe := range Fields(err) {
		if fe.Field == field {
			return true
		}
	}
	return false
}
