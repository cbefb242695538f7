package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the coarse failure kinds the API boundary exposes.
// Internal components may wrap these with finer-grained context for logging,
// but handlers only ever map to one of these.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInternal           = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping.
// The status is a boundary concern; the wrapped sentinel carries the kind.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// DuplicateEmail creates a 400 error for an email that is already claimed.
func DuplicateEmail() *AppError {
	return &AppError{
		Code:    "DUPLICATE_EMAIL",
		Message: "email already in use",
		Status:  http.StatusBadRequest,
		Err:     ErrDuplicateEmail,
	}
}

// DuplicateUsername creates a 400 error for a username that is already taken.
func DuplicateUsername() *AppError {
	return &AppError{
		Code:    "DUPLICATE_USERNAME",
		Message: "username already taken",
		Status:  http.StatusBadRequest,
		Err:     ErrDuplicateUsername,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidCredentials creates a 401 error. The message is identical for an
// unknown email and a wrong password so the response cannot be used to
// enumerate accounts.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid email or password",
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidCredentials,
	}
}

// Unauthenticated creates a 401 error. It covers missing, malformed,
// expired, revoked, and badly-signed tokens alike; the specific reason stays
// in server logs.
func Unauthenticated() *AppError {
	return &AppError{
		Code:    "UNAUTHENTICATED",
		Message: "authentication required",
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicateUsername), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
