// Package apperror defines the typed errors shared by every layer.
//
// Each AppError wraps one sentinel (ErrNotFound, ErrConflict, ...) so callers
// can branch with errors.Is, and carries a stable machine-readable Code that
// clients can switch on without parsing the message.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("rate limited")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Machine-readable codes sent to clients in the "code" field.
const (
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	CodeCategoryExists     = "CATEGORY_EXISTS"
	CodeTodoNotFound       = "TODO_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

type AppError struct {
	Err     error  // sentinel, decides the HTTP status
	Code    string // stable code, e.g. "TODO_NOT_FOUND"
	Message string // human-readable message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is the generic not-found error for resources without a
// dedicated code (users, for example).
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

func EmailExists() *AppError {
	return &AppError{Err: ErrConflict, Code: CodeEmailExists, Message: "Email already registered"}
}

func InvalidCredentials() *AppError {
	return &AppError{Err: ErrUnauthorized, Code: CodeInvalidCredentials, Message: "Invalid credentials"}
}

func TokenExpired() *AppError {
	return &AppError{Err: ErrUnauthorized, Code: CodeTokenExpired, Message: "Token expired"}
}

func TokenInvalid() *AppError {
	return &AppError{Err: ErrUnauthorized, Code: CodeInvalidToken, Message: "Invalid token"}
}

func NotAuthenticated() *AppError {
	return &AppError{Err: ErrUnauthorized, Code: CodeNotAuthenticated, Message: "Not authenticated"}
}

// CategoryNotFound is returned both for missing categories and for
// categories owned by someone else.
func CategoryNotFound() *AppError {
	return &AppError{Err: ErrNotFound, Code: CodeCategoryNotFound, Message: "Category not found"}
}

func CategoryExists() *AppError {
	return &AppError{Err: ErrConflict, Code: CodeCategoryExists, Message: "Category already exists"}
}

// TodoNotFound is returned both for missing todos and for todos owned by
// someone else.
func TodoNotFound() *AppError {
	return &AppError{Err: ErrNotFound, Code: CodeTodoNotFound, Message: "Todo not found"}
}

func RateLimited() *AppError {
	return &AppError{Err: ErrRateLimited, Code: CodeRateLimited, Message: "Rate limit exceeded"}
}

// MethodNotAllowed is for a known path requested with an unsupported method.
func MethodNotAllowed() *AppError {
	return &AppError{Err: ErrMethodNotAllowed, Code: CodeMethodNotAllowed, Message: "Method Not Allowed"}
}

// Describe maps an error to the HTTP status, code and detail a client sees.
//
// Anything that is not an *AppError is treated as internal: the detail is
// generic so SQL fragments or file paths never leak to the client.
func Describe(err error) (status int, code, detail string) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, CodeInternal, "An internal error occurred"
	}

	status = http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, ErrMethodNotAllowed):
		status = http.StatusMethodNotAllowed
	}

	code = appErr.Code
	if code == "" {
		code = CodeInternal
	}
	return status, code, appErr.Message
}

// Body is the JSON shape of every error response.
type Body struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Write sends err as {"detail", "code"} with the status Describe picks.
// A 401 also carries "WWW-Authenticate: Bearer".
func Write(w http.ResponseWriter, err error) (status int) {
	status, code, detail := Describe(err)

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Detail: detail, Code: code})
	return status
}
