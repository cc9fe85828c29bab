package validation

import (
	"fmt"
	"slices"
	"strings"
)

// Validator collects field errors from programmatic checks.
type Validator struct {
	errs Errors
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records an error for field.
func (v *Validator) AddError(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// Merge records the field errors carried by err. Other errors are recorded
// under field.
func (v *Validator) Merge(field string, err error) *Validator {
	if err == nil {
		return v
	}
	if fields := Fields(err); fields != nil {
		v.errs = append(v.errs, fields...)
		return v
	}
	v.AddError(field, err.Error())
	return v
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Errors returns the recorded field errors.
func (v *Validator) Errors() []FieldError {
	return v.errs
}

// Err returns the recorded errors as an Errors value, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return slices.Clone(v.errs)
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Range checks that value lies within [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
	return v
}

// OneOf checks that a non-empty value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom records message for field unless condition holds.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
