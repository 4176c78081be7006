package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeInternal              = "INTERNAL_ERROR"
	CodeAccountExists         = "ACCOUNT_EXISTS"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeInvalidSession        = "INVALID_SESSION"
	CodeDependencyFailure     = "DEPENDENCY_FAILURE"
	CodeTokenIssuanceFailed   = "TOKEN_ISSUANCE_FAILED"
)

// Sentinels for errors.Is matching. DomainError.Is compares codes, so any
// DomainError carrying the same code matches regardless of message or cause.
var (
	ErrAccountExists         = &DomainError{Code: CodeAccountExists}
	ErrInvalidCredentials    = &DomainError{Code: CodeInvalidCredentials}
	ErrInvalidOrExpiredToken = &DomainError{Code: CodeInvalidOrExpiredToken}
	ErrInvalidSession        = &DomainError{Code: CodeInvalidSession}
	ErrDependencyFailure     = &DomainError{Code: CodeDependencyFailure}
	ErrTokenIssuanceFailed   = &DomainError{Code: CodeTokenIssuanceFailed}
	ErrValidation            = &DomainError{Code: CodeValidationFailed}
	ErrUnauthorized          = &DomainError{Code: CodeUnauthorized}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewAccountExists is returned when registering an email that is already on file.
func NewAccountExists() error {
	return NewDomainError(CodeAccountExists, "email is already registered", http.StatusConflict, nil)
}

// NewInvalidCredentials covers both unknown email and wrong password.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized, nil)
}

func NewInvalidOrExpiredToken(err error) error {
	return &DomainError{
		Code:       CodeInvalidOrExpiredToken,
		Message:    "token is invalid or expired",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// NewInvalidSession is returned when a well-formed token names an account that no longer exists.
func NewInvalidSession() error {
	return NewDomainError(CodeInvalidSession, "account for session no longer exists", http.StatusUnauthorized, nil)
}

func NewDependencyFailure(err error) error {
	return &DomainError{
		Code:       CodeDependencyFailure,
		Message:    "dependency unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewTokenIssuanceFailed(err error) error {
	return &DomainError{
		Code:       CodeTokenIssuanceFailed,
		Message:    "account created but session tokens could not be issued",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.HTTPStatus != 0 {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
