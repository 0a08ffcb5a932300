// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
//
// A transport error (connection failure, non-2xx status, backend-reported
// failure) has Type ErrTypeTransport; a malformed stream line has Type
// ErrTypeDecode and carries the line.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error

	// StatusCode is the HTTP status for transport errors, 0 when the
	// request never got a response.
	StatusCode int

	// Record is the 1-based index of the offending record for decode errors.
	Record int
	// Line is the raw text that failed to decode.
	Line string
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeTransport
	ErrTypeDecode
	ErrTypeInvalidRequest
)

// String returns the taxonomy name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransport:
		return "TransportError"
	case ErrTypeDecode:
		return "StreamDecodeError"
	case ErrTypeInvalidRequest:
		return "InvalidRequest"
	default:
		return "Unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrEmptyPrompt  = &ClientError{Type: ErrTypeInvalidRequest, Message: "prompt is empty"}
	ErrEmptyModel   = &ClientError{Type: ErrTypeInvalidRequest, Message: "model is empty"}
	ErrNoMessages   = &ClientError{Type: ErrTypeInvalidRequest, Message: "message history is empty"}
	ErrStreamClosed = &ClientError{Type: ErrTypeUnknown, Message: "stream closed"}
)

func newTransportError(message string, status int, cause error) *ClientError {
	return &ClientError{Type: ErrTypeTransport, Message: message, StatusCode: status, Cause: cause}
}

func newDecodeError(record int, line []byte, cause error) *ClientError {
	return &ClientError{
		Type:    ErrTypeDecode,
		Message: fmt.Sprintf("malformed stream record %d", record),
		Cause:   cause,
		Record:  record,
		Line:    string(line),
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func errorType(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	return errorType(err) == ErrTypeTransport
}

// IsDecode reports whether err is a StreamDecodeError.
func IsDecode(err error) bool {
	return errorType(err) == ErrTypeDecode
}

// IsInvalidRequest reports whether the request was rejected before any I/O.
func IsInvalidRequest(err error) bool {
	return errorType(err) == ErrTypeInvalidRequest
}

// StatusCode returns the HTTP status carried by a transport error, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}
