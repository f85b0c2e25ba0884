package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input or a violated invariant
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// InvalidStateError indicates the resource is not in a state that allows the operation
	// (e.g. readying an unapproved revision for localization)
	InvalidStateError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }
func (e *InvalidStateError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }
func (e *InvalidStateError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrTranslationFormat = errors.New("unparseable translation response")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, draft)
	ResourceID   string // ID of the existing/conflicting resource
	Field        string // Unique field that collided (title, slug, locale)
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TranslationFormatError is returned when a translation provider answers with
// something that cannot be parsed into {translation, explanation}.
type TranslationFormatError struct {
	Message string
	Raw     string // Raw provider output, truncated
}

// Error implements the error interface
func (e *TranslationFormatError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *TranslationFormatError) StatusCode() int {
	return http.StatusBadGateway
}

// Is allows errors.Is() to match against ErrTranslationFormat
func (e *TranslationFormatError) Is(target error) bool {
	return target == ErrTranslationFormat
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// NewInvalidStateError builds an InvalidStateError
func NewInvalidStateError(message string) error {
	return &InvalidStateError{Message: message}
}
