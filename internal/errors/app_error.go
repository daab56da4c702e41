// Package errors defines the structured error types shared across the
// ChessMate server: a generic application error carrying an HTTP status and
// machine-readable code, and an aggregating validation error that collects
// every violated field instead of failing on the first one.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError represents a structured application error.
type AppError struct {
	// HTTPStatusCode is the HTTP status code to return.
	HTTPStatusCode int `json:"-"`
	// Code is an internal error code string.
	Code string `json:"code"`
	// Message is the user-facing error message.
	Message string `json:"message"`
	// Details provides additional error context (optional).
	Details map[string]interface{} `json:"details,omitempty"`
	// Err is the underlying error (not marshaled to JSON).
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ToJSON returns the JSON byte representation of the error.
func (e *AppError) ToJSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// New creates a new AppError.
func New(statusCode int, code, message string, err error) *AppError {
	return &AppError{
		HTTPStatusCode: statusCode,
		Code:           code,
		Message:        message,
		Err:            err,
	}
}

// Well-known error codes used by the API layer.
const (
	CodeInvalidFilter      = "invalid_filter"
	CodeMessageNotRecorded = "message_not_recorded"
	CodeSessionNotFound    = "session_not_found"
	CodeRetrievalFailed    = "retrieval_failed"
)

// NotRecorded wraps a durable-store failure as the "message not recorded"
// rejection the caller sees. The append was rolled back; the session itself
// remains usable.
func NotRecorded(err error) *AppError {
	return New(http.StatusServiceUnavailable, CodeMessageNotRecorded, "message not recorded", err)
}
