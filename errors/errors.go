package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError              ErrorType = "VALIDATION_ERROR"
	NotFoundError                ErrorType = "NOT_FOUND"
	AuthError                    ErrorType = "AUTHENTICATION_ERROR"
	PermissionError              ErrorType = "PERMISSION_DENIED"
	DatabaseError                ErrorType = "DATABASE_ERROR"
	ServerError                  ErrorType = "SERVER_ERROR"
	ConflictError                ErrorType = "CONFLICT"
	CapacityExceededError        ErrorType = "CAPACITY_EXCEEDED"
	DuplicateRequestError        ErrorType = "DUPLICATE_REQUEST"
	RemoteWriteError             ErrorType = "REMOTE_WRITE_FAILURE"
	InvalidStatusTransitionError ErrorType = "INVALID_STATUS_TRANSITION"
)

// AppError is the structured error returned by all coordinator and store
// operations. HTTPStatus is used by the error-handling middleware; Raw keeps
// the underlying cause for logs.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the response status, defaulting to 500 for errors
// constructed without one.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// New creates an AppError with the HTTP status derived from the type.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: httpStatus(errType),
	}
}

// Wrap attaches AppError context to a raw error. Returns nil for a nil error.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: httpStatus(errType),
		Raw:        err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, detail string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// PermissionDenied covers role and ownership failures, e.g. a non-guide
// approving a participant or a guide acting on another guide's tour.
func PermissionDenied(message string, detail string) *AppError {
	return &AppError{
		Type:       PermissionError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusForbidden,
	}
}

// CapacityExceeded signals that an approval would exceed the tour's capacity.
func CapacityExceeded(tourID string, capacity int) *AppError {
	return &AppError{
		Type:       CapacityExceededError,
		Message:    "Tour is full",
		Detail:     fmt.Sprintf("Tour %s has reached its capacity of %d", tourID, capacity),
		HTTPStatus: http.StatusConflict,
	}
}

// DuplicateRequest signals a join request while a pending or approved
// participant record already exists.
func DuplicateRequest(tourID, userID string) *AppError {
	return &AppError{
		Type:       DuplicateRequestError,
		Message:    "Join request already exists",
		Detail:     fmt.Sprintf("User %s already has an active request for tour %s", userID, tourID),
		HTTPStatus: http.StatusConflict,
	}
}

// RemoteWriteFailed wraps a failed write against the cloud backend.
func RemoteWriteFailed(err error) *AppError {
	return &AppError{
		Type:       RemoteWriteError,
		Message:    "Remote backend write failed",
		Detail:     "The change was not applied, please retry",
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

func InvalidStatusTransition(current, next string) *AppError {
	return &AppError{
		Type:       InvalidStatusTransitionError,
		Message:    "Invalid status transition",
		Detail:     fmt.Sprintf("Cannot transition from %s to %s", current, next),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewDatabaseError returns a sanitized database error, keeping the cause in Raw.
func NewDatabaseError(err error) *AppError {
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewConflictError(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

func httpStatus(errType ErrorType) int {
	switch errType {
	case ValidationError, InvalidStatusTransitionError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case PermissionError:
		return http.StatusForbidden
	case ConflictError, CapacityExceededError, DuplicateRequestError:
		return http.StatusConflict
	case RemoteWriteError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
