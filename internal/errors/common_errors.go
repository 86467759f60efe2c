package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInputNotFound  ErrorType = "INPUT_NOT_FOUND"
	ErrTypeDateParse      ErrorType = "DATE_PARSE"
	ErrTypeIORead         ErrorType = "IO_READ"
	ErrTypeEmptyInput     ErrorType = "EMPTY_INPUT"
	ErrTypeConnection     ErrorType = "CONNECTION"
	ErrTypeSchema         ErrorType = "SCHEMA"
	ErrTypeLoad           ErrorType = "LOAD"
	ErrTypeQuery          ErrorType = "QUERY"
	ErrTypeRender         ErrorType = "RENDER"
	ErrTypeMerge          ErrorType = "MERGE"
	ErrTypeCleanupWarning ErrorType = "CLEANUP_WARNING"
	ErrTypeConfig         ErrorType = "CONFIG"
	ErrTypeValidation     ErrorType = "VALIDATION"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// TypeOf returns the type of the outermost AppError in err's chain.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper functions for common error types

// NewInputNotFoundError reports a missing input file
func NewInputNotFoundError(path string, cause error) *AppError {
	return NewAppError(ErrTypeInputNotFound, fmt.Sprintf("input file %s not found", path), cause).
		WithContext("path", path)
}

// NewDateParseError reports a file name whose date token cannot be resolved
func NewDateParseError(token string, cause error) *AppError {
	return NewAppError(ErrTypeDateParse, fmt.Sprintf("cannot resolve date from token %q", token), cause).
		WithContext("token", token)
}

// NewIOReadError creates a read/decode error
func NewIOReadError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIORead, message, cause)
}

// NewEmptyInputError reports an input without any records
func NewEmptyInputError(path string) *AppError {
	return NewAppError(ErrTypeEmptyInput, fmt.Sprintf("input file %s has no records", path), nil).
		WithContext("path", path)
}

// NewConnectionError creates a database connection error
func NewConnectionError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConnection, message, cause)
}

// NewSchemaError creates a staging schema error
func NewSchemaError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, message, cause)
}

// NewLoadError reports a failed batch. Batches before batchIndex stay committed.
func NewLoadError(batchIndex, committedRows int, cause error) *AppError {
	return NewAppError(ErrTypeLoad, fmt.Sprintf("batch %d failed after %d committed rows", batchIndex, committedRows), cause).
		WithContext("batch_index", batchIndex).
		WithContext("committed_rows", committedRows)
}

// NewQueryError creates a correlation query error
func NewQueryError(message string, cause error) *AppError {
	return NewAppError(ErrTypeQuery, message, cause)
}

// NewRenderError creates a report rendering error
func NewRenderError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRender, message, cause)
}

// NewMergeError creates a ledger merge error
func NewMergeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMerge, message, cause)
}

// NewCleanupWarning creates a non-fatal cleanup error
func NewCleanupWarning(message string, cause error) *AppError {
	return NewAppError(ErrTypeCleanupWarning, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}
