package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural errors: the sample design cannot be interpreted safely.
	ErrInvalidDesign  = errors.New("invalid sample design")
	ErrTokenMismatch  = fmt.Errorf("%w: sample columns disagree on token count", ErrInvalidDesign)
	ErrNoTimepoint    = fmt.Errorf("%w: column has no timepoint token", ErrInvalidDesign)
	ErrUnparsableAxis = fmt.Errorf("%w: time axis cannot be parsed", ErrInvalidDesign)

	// Data-absence errors: recoverable, reported via diagnostics.
	ErrEmptyTable = errors.New("intensity table is empty")
)

// IsStructural reports whether err is a fatal design error for which no safe
// partial interpretation exists.
func IsStructural(err error) bool {
	return errors.Is(err, ErrInvalidDesign)
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, message string) error {
	return fmt.Errorf("validation failed for %s: %s", field, message)
}
