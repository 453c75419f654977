package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the response envelope.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeAlreadyLiked       = "ALREADY_LIKED"
	CodeNotLiked           = "NOT_LIKED"
	CodeParentNotFound     = "PARENT_NOT_FOUND"
	CodeAlreadyReacted     = "ALREADY_REACTED"
	CodeAlreadyDeleted     = "ALREADY_DELETED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is an error that knows how it should be rendered to clients.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewError builds an AppError.
func NewError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// BadRequest is a 400 VALIDATION_ERROR.
func BadRequest(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeValidation, message)
}

// Unauthorized is a 401 UNAUTHORIZED.
func Unauthorized(message string) *AppError {
	return NewError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden is a 403 FORBIDDEN.
func Forbidden(message string) *AppError {
	return NewError(http.StatusForbidden, CodeForbidden, message)
}

// NotFound is a 404 NOT_FOUND.
func NotFound(message string) *AppError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

// Conflict is a 409 carrying code.
func Conflict(code, message string) *AppError {
	return NewError(http.StatusConflict, code, message)
}

// Internal wraps an unexpected failure. The cause is logged, never shown in production.
func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "서버 오류가 발생했습니다.", Err: err}
}

// AsAppError converts any error into an AppError, treating unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
