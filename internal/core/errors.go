package core

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeSerialization indicates a payload value could not be JSON encoded
	ErrorTypeSerialization ErrorType = "serialization_error"
	// ErrorTypeInvalidPayload indicates a payload document could not be decoded
	ErrorTypeInvalidPayload ErrorType = "invalid_payload_error"
	// ErrorTypeConfig indicates invalid configuration
	ErrorTypeConfig ErrorType = "config_error"
)

// FormatError is the error type returned across package boundaries
type FormatError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	// Field is the path of the offending value, e.g. "media[0].thumbnail"
	Field string `json:"field,omitempty"`
	// Original error for debugging
	Err error `json:"-"`
}

// Error implements the error interface
func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements the error unwrapping interface
func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewSerializationError creates an error for a value the JSON encoder rejected
func NewSerializationError(field string, err error) *FormatError {
	return &FormatError{
		Type:    ErrorTypeSerialization,
		Message: "failed to encode payload value",
		Field:   field,
		Err:     err,
	}
}

// NewInvalidPayloadError creates an error for an undecodable payload document
func NewInvalidPayloadError(message string, err error) *FormatError {
	return &FormatError{
		Type:    ErrorTypeInvalidPayload,
		Message: message,
		Err:     err,
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string, err error) *FormatError {
	return &FormatError{
		Type:    ErrorTypeConfig,
		Message: message,
		Err:     err,
	}
}

// IsErrorType reports whether err wraps a FormatError of type t
func IsErrorType(err error, t ErrorType) bool {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Type == t
	}
	return false
}
