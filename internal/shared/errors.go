package shared

import (
	"errors"
	"fmt"
)

// InvalidInputError is returned when a required identity field is missing or a
// value is out of its domain. Missing optional fields never produce it.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// NewInvalidInput builds an InvalidInputError for field.
func NewInvalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// IsInvalidInput reports whether err wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
