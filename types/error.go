package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Orchestrator error codes
const (
	ErrValidation           ErrorCode = "VALIDATION_ERROR"
	ErrMaxWorkflowsExceeded ErrorCode = "MAX_WORKFLOWS_EXCEEDED"
	ErrWorkflowNotFound     ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrInternalError        ErrorCode = "INTERNAL_ERROR"
)

// Agent communication error codes
const (
	ErrAgentCommunication ErrorCode = "AGENT_COMMUNICATION"
	ErrAgentTimeout       ErrorCode = "AGENT_TIMEOUT"
	ErrAgentNotRegistered ErrorCode = "AGENT_NOT_REGISTERED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError creates an error for malformed orchestrator input.
// Validation errors are never retryable.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrValidation, Message: message, HTTPStatus: 400}
}

// NewWorkflowError creates a domain-level orchestration error with the given code.
func NewWorkflowError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewCommunicationError creates an agent transport failure error.
// Communication errors are retryable at the step level.
func NewCommunicationError(message string) *Error {
	return &Error{Code: ErrAgentCommunication, Message: message, Retryable: true}
}

// NewTimeoutError creates an error for a worker that did not respond in time.
func NewTimeoutError(message string) *Error {
	return &Error{Code: ErrAgentTimeout, Message: message, Retryable: true}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
