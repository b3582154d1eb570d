// Package errors defines the application error taxonomy shared by the store,
// the domain services and the Telegram handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown         = "UNKNOWN"
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeAlreadyLogged   = "ALREADY_LOGGED"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeStorage         = "STORAGE"
	CodeDelivery        = "DELIVERY"
	CodeConfig          = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is the concrete application error. Two errors match under errors.Is
// when they carry the same code, so callers compare against the sentinels below.
type Error struct {
	code    string
	message string
	err     error
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound        = &Error{code: CodeNotFound, message: "not found"}
	ErrForbidden       = &Error{code: CodeForbidden, message: "forbidden"}
	ErrAlreadyLogged   = &Error{code: CodeAlreadyLogged, message: "already logged"}
	ErrInvalidInput    = &Error{code: CodeInvalidInput, message: "invalid input"}
	ErrInvalidQuantity = &Error{code: CodeInvalidQuantity, message: "invalid quantity"}
	ErrStorage         = &Error{code: CodeStorage, message: "storage failure"}
	ErrDelivery        = &Error{code: CodeDelivery, message: "delivery failure"}
	ErrConfig          = &Error{code: CodeConfig, message: "configuration error"}
)

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is an application error with the same code.
// An invalid quantity also satisfies ErrInvalidInput.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.code == e.code {
		return true
	}
	return e.code == CodeInvalidQuantity && t.code == CodeInvalidInput
}

// Code returns the code of the first application error in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

func newError(code, message string, cause error) error {
	return &Error{code: code, message: message, err: cause}
}

// NotFound reports a missing user, habit or log.
func NotFound(format string, args ...any) error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

// Forbidden reports an ownership mismatch.
func Forbidden(format string, args ...any) error {
	return newError(CodeForbidden, fmt.Sprintf(format, args...), nil)
}

func AlreadyLogged(format string, args ...any) error {
	return newError(CodeAlreadyLogged, fmt.Sprintf(format, args...), nil)
}

func InvalidInput(format string, args ...any) error {
	return newError(CodeInvalidInput, fmt.Sprintf(format, args...), nil)
}

func InvalidQuantity(format string, args ...any) error {
	return newError(CodeInvalidQuantity, fmt.Sprintf(format, args...), nil)
}

// Storage wraps a failed database operation.
func Storage(message string, cause error) error {
	return newError(CodeStorage, message, cause)
}

// Delivery wraps a failed outbound notification.
func Delivery(message string, cause error) error {
	return newError(CodeDelivery, message, cause)
}

func Config(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}
