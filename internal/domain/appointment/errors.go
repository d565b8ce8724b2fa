package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrExpertiseMismatch = errors.New("doctor does not have the required expertise")
	ErrAllocationBusy    = errors.New("appointment is being allocated, retry shortly")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
