// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

// Common error codes following RESTful API conventions
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Server errors (5xx)
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Conversation pipeline errors
	CodeTransport     ErrorCode = "TRANSPORT_ERROR"
	CodeBackend       ErrorCode = "BACKEND_ERROR"
	CodeNormalization ErrorCode = "NORMALIZATION_ERROR"
	CodePersistence   ErrorCode = "PERSISTENCE_ERROR"

	// Business logic errors
	CodeSessionBusy     ErrorCode = "SESSION_BUSY"
	CodeNoPendingPrompt ErrorCode = "NO_PENDING_PROMPT"
	CodeChatNotFound    ErrorCode = "CHAT_NOT_FOUND"
)

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodeChatNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSessionBusy, CodeNoPendingPrompt:
		return http.StatusConflict
	case CodeServiceUnavailable, CodeTransport:
		return http.StatusServiceUnavailable
	case CodeBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Predefined error constructors for common scenarios

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewTransportError creates a transport error for a request that never
// reached the backend
func NewTransportError(service string, cause error) *AppError {
	return NewAppError(
		CodeTransport,
		"Service unreachable",
		fmt.Sprintf("Failed to reach %s", service),
	).WithCause(cause)
}

// NewBackendError creates an error for a structured non-2xx backend response
func NewBackendError(service string, status int, message string) *AppError {
	if message == "" {
		message = "Backend request failed"
	}
	return NewAppError(CodeBackend, message, "").
		WithMetadata("service", service).
		WithMetadata("status", status)
}

// NewNormalizationError creates an error for an unrecognized payload shape
func NewNormalizationError(payload string) *AppError {
	return NewAppError(
		CodeNormalization,
		"Unrecognized response shape",
		"",
	).WithMetadata("payload", payload)
}

// NewPersistenceError creates an error for a failed transcript save
func NewPersistenceError(operation string, cause error) *AppError {
	return NewAppError(
		CodePersistence,
		"Persistence operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewSessionBusyError creates an error for input arriving while a phase
// request is still in flight
func NewSessionBusyError() *AppError {
	return NewAppError(
		CodeSessionBusy,
		"Session busy",
		"A request is already in flight for this session",
	)
}

// NewChatNotFoundError creates a chat not found error
func NewChatNotFoundError(chatID string) *AppError {
	return NewAppError(
		CodeChatNotFound,
		"Chat not found",
		fmt.Sprintf("Chat with ID %s does not exist", chatID),
	).WithMetadata("chat_id", chatID)
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:     err.Code,
			Message:  err.Message,
			Details:  err.Details,
			Metadata: err.Metadata,
		},
	}
}
