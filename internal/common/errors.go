package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails returns a copy of e carrying details in the response body.
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Canonical error codes shared by all controllers.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL"
)

// NotFound builds a 404 error for the named resource.
func NotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", http.StatusNotFound, nil)
}

// BadRequest builds a 400 error.
func BadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest, nil)
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *AppError {
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// Forbidden builds a 403 error.
func Forbidden(message string) *AppError {
	return NewAppError(CodeForbidden, message, http.StatusForbidden, nil)
}

// Conflict builds a 409 error with a domain specific code.
func Conflict(code, message string) *AppError {
	return NewAppError(code, message, http.StatusConflict, nil)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// WriteError renders err using the canonical error body. Errors that are not
// AppErrors are reported as 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
}
