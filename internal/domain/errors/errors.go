// Package errors defines the core's error vocabulary. Kinds are
// semantic (see spec §7), not Go types: callers branch on the
// sentinel with errors.Is, and AppError only exists to carry an HTTP
// status to the boundary that needs one.
package errors

import (
	"errors"
	"net/http"
)

// Sentinel errors — the kinds spec.md §7 names. Everything else in
// this package is plumbing to get one of these to an HTTP response or
// a job's last_error column.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrDuplicate        = errors.New("duplicate event")
	ErrStale            = errors.New("stale event")
	ErrAnomalousStatus  = errors.New("anomalous status transition")
	ErrStorage          = errors.New("storage error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrJobNotClaimable  = errors.New("job is not claimable")
	ErrJobExhausted     = errors.New("job exhausted its retry budget")
)

// AppError pairs an error with the HTTP status the boundary should
// answer with. Only constructed at the HTTP edge; internal layers
// (worker, repository) pass plain sentinel errors.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, code, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

// NotFound maps to 404.
func NotFound(message string) *AppError {
	return newAppError(http.StatusNotFound, "not_found", message, ErrNotFound)
}

// BadRequest maps to 400.
func BadRequest(message string) *AppError {
	return newAppError(http.StatusBadRequest, "bad_request", message, ErrValidation)
}

// Unauthorized maps to 401 — reserved for SignatureInvalid per spec §7.
func Unauthorized(message string) *AppError {
	return newAppError(http.StatusUnauthorized, "unauthorized", message, ErrSignatureInvalid)
}

// Accepted maps benign outcomes (duplicate, stale, anomalous,
// validation failure) to 200: the provider must stop retrying even
// though the core took no business action.
func Accepted(message string) *AppError {
	return newAppError(http.StatusOK, "accepted", message, nil)
}

// Internal maps storage/transient failures to 5xx so the provider's
// own retry engine kicks in.
func Internal(err error) *AppError {
	return newAppError(http.StatusInternalServerError, "internal_error", "internal server error", err)
}

// AsAppError unwraps err into an *AppError, defaulting to Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
