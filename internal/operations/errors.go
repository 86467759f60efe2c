package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "cdrcli/internal/errors"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
)

// OperationError is a stage failure. Cause keeps the originating error so
// apperrors.IsType still sees through it.
type OperationError struct {
	Type    ErrorType              `json:"type"`
	Step    string                 `json:"step,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"cause,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithContext adds context information to the error
func (e *OperationError) WithContext(key string, value interface{}) *OperationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(step, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Step:    step,
		Message: message,
	}
}

// NewExecutionError creates a new execution error
func NewExecutionError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: causeMessage(cause),
		Cause:   cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(step string, timeout time.Duration, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeTimeout,
		Step:    step,
		Message: fmt.Sprintf("stage exceeded %s: %s", timeout, causeMessage(cause)),
		Cause:   cause,
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "run cancelled: " + causeMessage(cause),
		Cause:   cause,
	}
}

// NewFatalError creates a new fatal error
func NewFatalError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeFatal,
		Step:    step,
		Message: causeMessage(cause),
		Cause:   cause,
	}
}

// WrapError classifies a stage error. Existing OperationErrors pass through.
func WrapError(err error, step string, timeout time.Duration) *OperationError {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) && timeout > 0:
		return NewTimeoutError(step, timeout, err)
	case errors.Is(err, context.Canceled):
		return NewCancellationError(step, err)
	case apperrors.IsType(err, apperrors.ErrTypeMerge):
		return NewFatalError(step, err)
	default:
		return NewExecutionError(step, err)
	}
}

// GetErrorType returns the operation error type of err, or execution for
// foreign errors
func GetErrorType(err error) ErrorType {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// RootMessage returns the message of the originating error
func RootMessage(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Cause != nil {
		return opErr.Cause.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func causeMessage(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}
