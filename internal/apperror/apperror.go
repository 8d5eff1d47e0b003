// Package apperror defines the domain errors shared by the service and
// repository layers. Handlers translate them to HTTP status codes; nothing in
// here knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExpired and ErrLimitReached are terminal states of a share link.
	// They are kept apart from ErrNotFound so clients can tell "link expired"
	// from "link invalid".
	ErrExpired      = errors.New("expired")
	ErrLimitReached = errors.New("limit reached")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. The message is shown to clients,
// so it must not echo storage details.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for missing or invalid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func Expired(resource string) *AppError {
	return &AppError{
		Err:     ErrExpired,
		Message: fmt.Sprintf("%s has expired", resource),
	}
}

func LimitReached(resource string) *AppError {
	return &AppError{
		Err:     ErrLimitReached,
		Message: fmt.Sprintf("%s view limit reached", resource),
	}
}
