// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeMissingReference indicates an explicitly named profile or variant does not exist
	TypeMissingReference Type = "MISSING_REFERENCE"

	// TypeInvalidConfiguration indicates a profile or config document is malformed
	TypeInvalidConfiguration Type = "INVALID_CONFIGURATION"

	// TypeDomainInput indicates a request violates a domain precondition
	TypeDomainInput Type = "DOMAIN_INPUT"

	// TypePayloadTooLarge indicates a request body over the size limit
	TypePayloadTooLarge Type = "PAYLOAD_TOO_LARGE"

	// TypeNotFound indicates a stored record was not found
	TypeNotFound Type = "NOT_FOUND"

	// TypeStorage indicates a database or history store failure
	TypeStorage Type = "STORAGE_ERROR"

	// TypeProvider indicates a carrier rate provider failure
	TypeProvider Type = "PROVIDER_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// As finds the first *Error in the chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType checks if an error, or any error it wraps, is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := As(err); ok {
		return e.Type == t
	}
	return false
}

// TypeOf returns the type of the first *Error in the chain, or TypeInternal
func TypeOf(err error) Type {
	if e, ok := As(err); ok {
		return e.Type
	}
	return TypeInternal
}

// MissingReference creates an error for a named reference that does not resolve
func MissingReference(kind, id string) *Error {
	return Newf(TypeMissingReference, "%s not found: %s", kind, id).
		WithContext("kind", kind).
		WithContext("id", id)
}

// InvalidConfiguration creates a configuration error
func InvalidConfiguration(message string, cause error) *Error {
	return Wrap(TypeInvalidConfiguration, message, cause)
}

// DomainInput creates an input error
func DomainInput(message string) *Error {
	return New(TypeDomainInput, message)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// Provider creates a rate provider error
func Provider(message string, cause error) *Error {
	return Wrap(TypeProvider, message, cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
