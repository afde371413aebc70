package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the engine's failure taxonomy.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid ride transition")
	ErrAlreadyAssigned   = errors.New("ride already assigned")
	ErrNotFound          = errors.New("resource not found")
	ErrDependency        = errors.New("dependency failure")
	ErrConflict          = errors.New("resource conflict")
	ErrInternalServer    = errors.New("internal server error")
)

// AppError represents an application error with an HTTP status code and a
// stable machine-readable error code.
type AppError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError reports malformed caller input (bad geometry, negative
// distance, unknown vehicle class). Never retried automatically.
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: "invalid_input",
		Message:   message,
		Err:       ErrInvalidInput,
	}
}

// NewInvalidTransitionError reports a lifecycle misuse. State is unchanged.
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: "invalid_transition",
		Message:   fmt.Sprintf("cannot transition ride from %s to %s", from, to),
		Err:       ErrInvalidTransition,
	}
}

// NewAlreadyAssignedError is returned to the losers of a dispatch accept
// race. Benign from the driver's point of view, not a system failure.
func NewAlreadyAssignedError(rideID string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: "already_assigned",
		Message:   fmt.Sprintf("ride %s is no longer available", rideID),
		Err:       ErrAlreadyAssigned,
	}
}

// NewNotFoundError reports an unknown ride/driver/subscription identifier.
func NewNotFoundError(message string, err error) *AppError {
	if err == nil {
		err = ErrNotFound
	}
	return &AppError{
		Code:      http.StatusNotFound,
		ErrorCode: "not_found",
		Message:   message,
		Err:       err,
	}
}

// NewDependencyError reports a notifier/payment gateway failure. Logged and
// surfaced as a warning; does not block the core state transition.
func NewDependencyError(message string, err error) *AppError {
	if err == nil {
		err = ErrDependency
	}
	return &AppError{
		Code:      http.StatusBadGateway,
		ErrorCode: "dependency_failure",
		Message:   message,
		Err:       err,
	}
}

// NewConflictError reports an idempotence violation, e.g. rating twice.
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: "conflict",
		Message:   message,
		Err:       ErrConflict,
	}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string, err error) *AppError {
	if err == nil {
		err = ErrInternalServer
	}
	return &AppError{
		Code:      http.StatusInternalServerError,
		ErrorCode: "internal",
		Message:   message,
		Err:       err,
	}
}

// AsAppError extracts an *AppError from an error chain, wrapping unknown
// errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("unexpected error", err)
}
