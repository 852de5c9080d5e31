package utils

import (
	"errors"
	"net/http"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "RESOURCE_NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

// AppError is a domain error carrying the HTTP status and a stable machine code.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func ErrBadRequest(code, message string) *AppError {
	if code == "" {
		code = CodeBadRequest
	}
	return NewAppError(http.StatusBadRequest, code, message)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message)
}

func ErrNotFound(code, message string) *AppError {
	if code == "" {
		code = CodeNotFound
	}
	return NewAppError(http.StatusNotFound, code, message)
}

func ErrConflict(code, message string) *AppError {
	if code == "" {
		code = CodeConflict
	}
	return NewAppError(http.StatusConflict, code, message)
}

func ErrValidation(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeValidation, message)
}

// AsAppError unwraps err into an *AppError when it carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
