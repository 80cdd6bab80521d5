package realtime

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a realtime client error for handling and
// monitoring. Codes distinguish programming errors from expected
// business-rule rejections and transient failures.
type ErrorCode string

const (
	// ErrCodeNotConnected indicates a publish was attempted while the
	// broker link was not connected. Recoverable; callers should warn
	// the user rather than buffer the send.
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED"

	// ErrCodeDuplicateSubscription indicates a second live
	// subscription to the same topic. A programming error in the
	// caller's setup, not a process failure.
	ErrCodeDuplicateSubscription ErrorCode = "DUPLICATE_SUBSCRIPTION"

	// ErrCodePollFinalized indicates a vote against a finalized poll.
	// An expected business-rule rejection surfaced to the user.
	ErrCodePollFinalized ErrorCode = "POLL_FINALIZED"

	// ErrCodeMalformedFrame indicates an inbound payload failed to
	// parse. The frame is dropped and the stream continues.
	ErrCodeMalformedFrame ErrorCode = "MALFORMED_FRAME"

	// ErrCodePaginationFetch indicates a transient history fetch
	// failure. Retryable by the caller.
	ErrCodePaginationFetch ErrorCode = "PAGINATION_FETCH"

	// ErrCodeNotFound indicates a referenced entity (poll, option) is
	// not present in client state.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodePermission indicates the acting user lacks the privilege
	// for the operation (e.g. finalizing someone else's poll).
	ErrCodePermission ErrorCode = "PERMISSION_DENIED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is a structured error carrying a code, a human-readable
// message, the underlying cause and optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithContext adds contextual information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsRetryable reports whether the error represents a transient
// failure that may succeed on retry.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNotConnected, ErrCodePaginationFetch:
		return true
	default:
		return false
	}
}

// ErrNotConnected creates a not-connected error for a publish attempt.
func ErrNotConnected(endpoint string) *Error {
	return NewError(ErrCodeNotConnected, "broker link is not connected", nil).
		WithContext("endpoint", endpoint)
}

// ErrDuplicateSubscription creates a duplicate subscription error.
func ErrDuplicateSubscription(topic string) *Error {
	return NewError(ErrCodeDuplicateSubscription, fmt.Sprintf("topic %q already has a live subscription", topic), nil)
}

// ErrPollFinalized creates a finalized-poll rejection.
func ErrPollFinalized(pollID string) *Error {
	return NewError(ErrCodePollFinalized, fmt.Sprintf("poll %q is finalized", pollID), nil)
}

// ErrMalformedFrame creates a malformed frame error.
func ErrMalformedFrame(err error) *Error {
	return NewError(ErrCodeMalformedFrame, "inbound frame failed to parse", err)
}

// ErrPaginationFetch creates a pagination fetch error.
func ErrPaginationFetch(err error) *Error {
	return NewError(ErrCodePaginationFetch, "history fetch failed", err)
}

// GetErrorCode extracts the ErrorCode from an error, returning
// ErrCodeInternal for foreign errors.
func GetErrorCode(err error) ErrorCode {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.Code
	}
	return ErrCodeInternal
}

// IsNotConnected reports whether err carries ErrCodeNotConnected.
func IsNotConnected(err error) bool {
	return GetErrorCode(err) == ErrCodeNotConnected
}

// IsDuplicateSubscription reports whether err carries ErrCodeDuplicateSubscription.
func IsDuplicateSubscription(err error) bool {
	return GetErrorCode(err) == ErrCodeDuplicateSubscription
}

// IsPollFinalized reports whether err carries ErrCodePollFinalized.
func IsPollFinalized(err error) bool {
	return GetErrorCode(err) == ErrCodePollFinalized
}

// IsMalformedFrame reports whether err carries ErrCodeMalformedFrame.
func IsMalformedFrame(err error) bool {
	return GetErrorCode(err) == ErrCodeMalformedFrame
}

// IsPaginationFetch reports whether err carries ErrCodePaginationFetch.
func IsPaginationFetch(err error) bool {
	return GetErrorCode(err) == ErrCodePaginationFetch
}
