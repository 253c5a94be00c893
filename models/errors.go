package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInjection    = "INJECTION_FAILED"
	ErrCodeFinalize     = "FINALIZE_FAILED"
	ErrCodeBusy         = "EXPORT_BUSY"
	ErrCodeTimeout      = "EXPORT_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExportError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ExportError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new ExportError.
func NewExportError(code, message string, err error) *ExportError {
	return &ExportError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ExportError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// UserMessage is the text shown in the session log for a failed step.
// It prefers the wrapped cause, which is what the user can act on.
func (e *ExportError) UserMessage() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}
