// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Helios.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Helios errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates rate limiting was triggered.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeUnauthorized indicates authorization failed.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeMemoryError indicates a vector memory error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeQueueFull indicates the task queue rejected a submission.
	CodeQueueFull ErrorCode = "QUEUE_FULL"

	// CodeInsufficientStock indicates a stock removal exceeded the
	// available quantity.
	CodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
)

// HeliosError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type HeliosError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *HeliosError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *HeliosError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging and
// API error payloads.
func (e *HeliosError) MarshalJSON() ([]byte, error) {
	payload := struct {
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Cause       string                 `json:"cause,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Recoverable bool                   `json:"recoverable"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Context:     e.Context,
		Recoverable: e.Recoverable,
	}
	if e.Err != nil {
		payload.Cause = e.Err.Error()
	}
	return json.Marshal(payload)
}

// New creates a new HeliosError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *HeliosError {
	return &HeliosError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *HeliosError) WithContext(key string, value interface{}) *HeliosError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *HeliosError) WithRecoverable(recoverable bool) *HeliosError {
	e.Recoverable = recoverable
	return e
}

// AsHeliosError attempts to convert an error to a HeliosError.
// Returns the error as HeliosError if it is one, or wraps it otherwise.
func AsHeliosError(err error) *HeliosError {
	if err == nil {
		return nil
	}
	if he, ok := err.(*HeliosError); ok {
		return he
	}
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *HeliosError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeUnauthorized:
		return 401
	case CodeInvalidInput, CodeInsufficientStock:
		return 400
	case CodeTimeout:
		return 408
	case CodeRateLimit, CodeQueueFull:
		return 429
	case CodeLLMError, CodeMemoryError:
		return 502
	default:
		return 500
	}
}
