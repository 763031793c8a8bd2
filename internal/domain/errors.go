package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these,
// so callers (and the HTTP layer) can branch with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDependencyFailure = errors.New("dependency failure")
)

// Validationf builds a validation error with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Dependency wraps a collaborator failure. Errors that already carry a kind
// are returned as is.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, op, err)
}

// Kind reports which error kind err carries, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrUnauthorized, ErrValidation, ErrInvalidTransition, ErrDependencyFailure} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
