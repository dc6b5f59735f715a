package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrActionNotAllowed = errors.New("action not allowed")
	ErrNothingToCompare = errors.New("purchase order or receipt not available")
)

// ValidationError is an input problem caught before anything is sent to the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
