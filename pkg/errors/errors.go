// Package errors defines the error taxonomy shared by the similarity core and
// the services around it. The core wraps these sentinels with %w; transport
// layers translate them into status codes with HTTPStatusCode.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidConfiguration    = errors.New("invalid configuration")
	ErrInvalidInput            = errors.New("invalid input")
	ErrEmptyShingleSet         = errors.New("empty shingle set")
	ErrDuplicateDocument       = errors.New("document already exists")
	ErrUnknownDocument         = errors.New("unknown document")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrSignatureLengthMismatch = errors.New("signature length mismatch")
	ErrIdempotencyConflict     = errors.New("idempotency key already used")
	ErrUnavailable             = errors.New("dependency unavailable")
	ErrInternal                = errors.New("internal error")
	ErrTimeout                 = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// IsValidation reports whether err was caused by caller misuse or malformed
// input rather than an internal failure.
func IsValidation(err error) bool {
	code := HTTPStatusCode(err)
	return code >= 400 && code < 500
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownDocument):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateDocument), errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrInvalidConfiguration),
		errors.Is(err, ErrEmptyShingleSet):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
