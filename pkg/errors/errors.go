package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrConfigNotFound  ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigParse     ErrorCode = "CONFIG_PARSE"
	ErrProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"

	// Deployment errors
	ErrAlreadyRunning ErrorCode = "ALREADY_RUNNING"
	ErrLock           ErrorCode = "LOCK"
	ErrIO             ErrorCode = "IO_FAILURE"
	ErrUnknownArchive ErrorCode = "UNKNOWN_ARCHIVE_TYPE"
	ErrExtraction     ErrorCode = "EXTRACTION"
	ErrCommandFailed  ErrorCode = "COMMAND_FAILED"
)

// LandfallError represents a structured error with code and details
type LandfallError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *LandfallError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *LandfallError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *LandfallError) Is(target error) bool {
	var targetErr *LandfallError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new LandfallError with the given code and message
func New(code ErrorCode, message string) *LandfallError {
	return &LandfallError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new LandfallError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *LandfallError {
	return &LandfallError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a LandfallError
func Wrap(err error, code ErrorCode, message string) *LandfallError {
	if err == nil {
		return nil
	}
	return &LandfallError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *LandfallError {
	if err == nil {
		return nil
	}
	return &LandfallError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *LandfallError) WithDetail(key string, value interface{}) *LandfallError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var lfErr *LandfallError
	if errors.As(err, &lfErr) {
		return lfErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a LandfallError
func GetErrorCode(err error) ErrorCode {
	var lfErr *LandfallError
	if errors.As(err, &lfErr) {
		return lfErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a LandfallError
func GetErrorDetails(err error) map[string]interface{} {
	var lfErr *LandfallError
	if errors.As(err, &lfErr) {
		return lfErr.Details
	}
	return nil
}
