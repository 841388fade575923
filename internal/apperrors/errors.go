package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType catégorise les erreurs du domaine
type ErrorType string

const (
	TypeValidation      ErrorType = "ValidationError"
	TypeUnauthenticated ErrorType = "Unauthenticated"
	TypeForbidden       ErrorType = "Forbidden"
	TypeNotFound        ErrorType = "NotFound"
	TypeConflict        ErrorType = "Conflict"
	TypeRateLimited     ErrorType = "RateLimited"
	TypeTimeout         ErrorType = "Timeout"
	TypeUnavailable     ErrorType = "Unavailable"
	TypeInternal        ErrorType = "Internal"
)

// Error est l'erreur typée exposée aux handlers HTTP
type Error struct {
	Type       ErrorType   `json:"type"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	RetryAfter int         `json:"retry_after_seconds,omitempty"`
	cause      error
}

// Error implémente l'interface error
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap expose la cause sous-jacente pour errors.Is/As
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails attache des détails structurés (liste de champs invalides, etc.)
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithCause attache l'erreur d'infrastructure sous-jacente
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// HTTPStatus retourne le code HTTP correspondant au type d'erreur
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthenticated:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeTimeout:
		return http.StatusGatewayTimeout
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Constructeurs par type

func Validation(format string, args ...interface{}) *Error {
	return &Error{Type: TypeValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(message string) *Error {
	return &Error{Type: TypeUnauthenticated, Message: message}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Type: TypeForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Type: TypeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Type: TypeConflict, Message: fmt.Sprintf(format, args...)}
}

func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Type:       TypeRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfterSeconds,
	}
}

func Timeout(message string) *Error {
	return &Error{Type: TypeTimeout, Message: message}
}

func Unavailable(format string, args ...interface{}) *Error {
	return &Error{Type: TypeUnavailable, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...interface{}) *Error {
	return &Error{Type: TypeInternal, Message: fmt.Sprintf(format, args...)}
}

// From normalise une erreur quelconque vers une *Error.
// Les erreurs d'infrastructure non catégorisées deviennent Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error").WithCause(err)
}

// IsType teste le type d'une erreur
func IsType(err error, t ErrorType) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}
