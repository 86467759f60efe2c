package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "input not found", errType: ErrTypeInputNotFound, expected: "INPUT_NOT_FOUND"},
		{name: "date parse", errType: ErrTypeDateParse, expected: "DATE_PARSE"},
		{name: "io read", errType: ErrTypeIORead, expected: "IO_READ"},
		{name: "empty input", errType: ErrTypeEmptyInput, expected: "EMPTY_INPUT"},
		{name: "connection", errType: ErrTypeConnection, expected: "CONNECTION"},
		{name: "schema", errType: ErrTypeSchema, expected: "SCHEMA"},
		{name: "load", errType: ErrTypeLoad, expected: "LOAD"},
		{name: "query", errType: ErrTypeQuery, expected: "QUERY"},
		{name: "render", errType: ErrTypeRender, expected: "RENDER"},
		{name: "merge", errType: ErrTypeMerge, expected: "MERGE"},
		{name: "cleanup warning", errType: ErrTypeCleanupWarning, expected: "CLEANUP_WARNING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeEmptyInput,
				Message: "input file CDR-25120900.csv has no records",
			},
			wantMessage: "[EMPTY_INPUT] input file CDR-25120900.csv has no records",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeConnection,
				Message: "open sqlserver connection",
				Cause:   fmt.Errorf("connection refused"),
			},
			wantMessage: "[CONNECTION] open sqlserver connection: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewRenderError("save workbook", cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("stage render: %w", err), &appErr)
	assert.Equal(t, ErrTypeRender, appErr.Type)
}

func TestNewLoadError_Context(t *testing.T) {
	err := NewLoadError(2, 2000, errors.New("constraint violation"))

	assert.Equal(t, ErrTypeLoad, err.Type)
	assert.Equal(t, 2, err.Context["batch_index"])
	assert.Equal(t, 2000, err.Context["committed_rows"])
	assert.Contains(t, err.Error(), "batch 2 failed after 2000 committed rows")
}

func TestIsType(t *testing.T) {
	inner := NewDateParseError("2512", errors.New("too short"))
	outer := NewAppError(ErrTypeValidation, "resolve business date", inner)

	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{name: "outer type", err: outer, errType: ErrTypeValidation, want: true},
		{name: "nested type", err: outer, errType: ErrTypeDateParse, want: true},
		{name: "wrapped by fmt", err: fmt.Errorf("run: %w", inner), errType: ErrTypeDateParse, want: true},
		{name: "absent type", err: outer, errType: ErrTypeMerge, want: false},
		{name: "plain error", err: errors.New("boom"), errType: ErrTypeMerge, want: false},
		{name: "nil error", err: nil, errType: ErrTypeMerge, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeMerge, TypeOf(fmt.Errorf("x: %w", NewMergeError("insert", nil))))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestWithContext_NilMap(t *testing.T) {
	err := &AppError{Type: ErrTypeSchema, Message: "bad identity"}
	err.WithContext("identity", "CDR")

	assert.Equal(t, "CDR", err.Context["identity"])
}
