// Package errors defines the structured error type shared by every tool,
// the store and the cache layer, plus the mapping from those errors to
// HTTP statuses and the short user-facing messages shown by the UI.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeInvalidInput     = "ERR_INVALID_INPUT"
	ErrCodeOutOfRange       = "ERR_OUT_OF_RANGE"
	ErrCodeUnknownTool      = "ERR_UNKNOWN_TOOL"
	ErrCodeUnknownBrand     = "ERR_UNKNOWN_BRAND"
	ErrCodeStorageFailed    = "ERR_STORAGE_FAILED"
	ErrCodeNetworkFailed    = "ERR_NETWORK_FAILED"
	ErrCodeOffline          = "ERR_OFFLINE"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// ToolError is a structured error type with context.
type ToolError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Tool    string
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Tool != "" {
		parts = append(parts, "tool:"+e.Tool)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ToolError) Is(target error) bool {
	var t *ToolError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ToolError) WithContext(key string, value interface{}) *ToolError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithTool records which tool produced the error.
func (e *ToolError) WithTool(tool string) *ToolError {
	e.Tool = tool

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *ToolError {
	return &ToolError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// Invalid is shorthand for a validation error with the generic input code
// and a formatted message.
func Invalid(format string, args ...interface{}) *ToolError {
	return NewValidationError(ErrCodeInvalidInput, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(code, message string) *ToolError {
	return &ToolError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewStorageError creates a storage error.
func NewStorageError(message string, cause error) *ToolError {
	return &ToolError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeStorageFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *ToolError {
	return &ToolError{
		Type:    ErrorTypeNetwork,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *ToolError {
	return &ToolError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *ToolError {
	return &ToolError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// ErrUnknownTool creates a not found error for a tool or calculator id.
func ErrUnknownTool(name string) *ToolError {
	return NewNotFoundError(ErrCodeUnknownTool, "unknown tool: "+name)
}

// IsValidation checks if an error was caused by bad input.
func IsValidation(err error) bool {
	return typeOf(err) == ErrorTypeValidation
}

// IsNotFound checks if an error reports a missing tool or record.
func IsNotFound(err error) bool {
	return typeOf(err) == ErrorTypeNotFound
}

// IsNetwork checks if an error is network-related.
func IsNetwork(err error) bool {
	return typeOf(err) == ErrorTypeNetwork
}

func typeOf(err error) ErrorType {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Type
	}

	return ""
}

// Code returns the error code of a ToolError, or ErrCodeInternalError for
// anything else.
func Code(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}

	return ErrCodeInternalError
}

// HTTPStatus maps an error to the status code a handler should answer with.
func HTTPStatus(err error) int {
	switch typeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeNetwork:
		return http.StatusServiceUnavailable
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}

		return http.StatusInternalServerError
	}
}

// UserMessage returns the short notification text shown to the user.
// Validation and not found messages are safe to show as is; everything else
// collapses to a generic message.
func UserMessage(err error) string {
	var te *ToolError
	if !errors.As(err, &te) {
		return "Something went wrong. Please try again."
	}

	switch te.Type {
	case ErrorTypeValidation, ErrorTypeNotFound:
		return te.Message
	case ErrorTypeNetwork:
		return "You appear to be offline and no cached copy is available."
	case ErrorTypeStorage:
		return "Your preferences could not be saved. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// Payload is the JSON error body every endpoint answers with.
type Payload struct {
	Error PayloadError `json:"error"`
}

// PayloadError carries the code and the user-facing message.
type PayloadError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewPayload builds the response body for err.
func NewPayload(err error) Payload {
	return Payload{Error: PayloadError{Code: Code(err), Message: UserMessage(err)}}
}

// ErrorHandler provides centralized error logging.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level that matches its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var te *ToolError
	if !errors.As(err, &te) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch te.Type {
	case ErrorTypeValidation, ErrorTypeNotFound:
		h.logger.Warn(ctx, err, "Request rejected",
			"type", te.Type,
			"code", te.Code,
			"tool", te.Tool)
	case ErrorTypeNetwork:
		h.logger.Warn(ctx, err, "Upstream unavailable",
			"type", te.Type,
			"code", te.Code)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", te.Type,
			"code", te.Code,
			"tool", te.Tool)
	}
}
