// Package errors provides standardized error types for the notification pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePermissionDenied     ErrorCode = "PERMISSION_DENIED"
	ErrCodeTransportUnavailable ErrorCode = "TRANSPORT_UNAVAILABLE"
	ErrCodePayloadDecodeFailed  ErrorCode = "PAYLOAD_DECODE_FAILED"
	ErrCodeStorageWriteFailed   ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeRenderFailed         ErrorCode = "RENDER_FAILED"
	ErrCodeInitializationFailed ErrorCode = "INITIALIZATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewPermissionDeniedError creates a non-retryable permission error.
// Denial degrades the service; it never aborts initialization.
func NewPermissionDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   "Display permission denied by transport",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportUnavailableError creates a transport error. Retry happens only
// on the next natural trigger, never in a loop.
func NewTransportUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportUnavailable,
		Message:   "Push transport unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadDecodeError creates a non-retryable decode error.
func NewPayloadDecodeError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadDecodeFailed,
		Message:   "Malformed trigger or tap payload",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageWriteError creates a storage error. The write is dropped, never
// retried synchronously.
func NewStorageWriteError(store string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageWriteFailed,
		Message:   "Durable store write failed",
		Details:   fmt.Sprintf("store: %s, error: %s", store, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRenderFailedError creates a render error scoped to one event.
func NewRenderFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderFailed,
		Message:   "Platform display call rejected",
		Details:   fmt.Sprintf("notificationType: %s, error: %s", notificationType, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInitializationFailedError creates an error for a failed service init.
// The host process keeps running in degraded mode.
func NewInitializationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInitializationFailed,
		Message:   "Notification service initialization failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
