package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeSchemaViolation = "SCHEMA_VIOLATION"
	CodeInputEmpty      = "INPUT_EMPTY"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeDegenerateModel = "DEGENERATE_MODEL"
	CodeIOError         = "IO_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// SchemaViolation marks a structurally invalid sample design; there is no
// safe partial interpretation, so the whole run fails.
func SchemaViolation(message string) *AppError {
	return New(CodeSchemaViolation, message)
}

func InputEmpty(message string) *AppError {
	return New(CodeInputEmpty, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// DegenerateModel marks a per-gene statistical failure (singular design,
// too few groups); callers degrade the gene, never the batch.
func DegenerateModel(message string) *AppError {
	return New(CodeDegenerateModel, message)
}

func IOError(message string, cause error) *AppError {
	return &AppError{Code: CodeIOError, Message: message, Cause: cause}
}
