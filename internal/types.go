// internal/types.go - Common types for internal packages
package internal

import "errors"

// SourceType represents where stored tiles are read from
type SourceType string

const (
	SourceTypeGeoPackage SourceType = "geopackage"
	SourceTypeLocal      SourceType = "local"
)

// Error represents application-specific errors
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new application error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the outermost application error in err's chain
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrorCode constants for common error types
const (
	ErrorCodeProcessing = "PROCESSING_ERROR"
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeConfig     = "CONFIG_ERROR"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeTimeout    = "TIMEOUT_ERROR"
	ErrorCodeFileSystem = "FILESYSTEM_ERROR"
	ErrorCodeMalformed  = "MALFORMED_INPUT"
	ErrorCodeStore      = "STORE_ERROR"
)
