package parkwatch

import (
	"errors"
	"fmt"
)

// Error codes. The http package translates these into status codes; nothing
// below the transport layer should know about HTTP.
const (
	EINVALID      = "invalid"      // bad input, duplicate email, self-delete
	ENOTFOUND     = "not_found"    // no row for the given id
	EUNAUTHORIZED = "unauthorized" // missing or expired session
	EFORBIDDEN    = "forbidden"    // authenticated but not an admin
	ECONFLICT     = "conflict"
	ERATELIMIT    = "rate_limit"
	EINTERNAL     = "internal" // database, storage, anything unexpected
)

// genericMessage is what callers see for any error that is not an *Error,
// and for every EINTERNAL error at the transport boundary.
const genericMessage = "An internal error occurred."

// Error is the application error type. Message is safe to show to a client;
// Err is the cause and is only ever logged.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf returns an *Error with a formatted message and no cause.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError returns an *Error carrying err as its cause.
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrorWithFields returns a validation error keyed by request field.
func ErrorWithFields(fields map[string]string) *Error {
	return &Error{Code: EINVALID, Message: "Validation failed", Fields: fields}
}

func NotFound(format string, args ...any) *Error     { return Errorf(ENOTFOUND, format, args...) }
func Invalid(format string, args ...any) *Error      { return Errorf(EINVALID, format, args...) }
func Unauthorized(format string, args ...any) *Error { return Errorf(EUNAUTHORIZED, format, args...) }
func Forbidden(format string, args ...any) *Error    { return Errorf(EFORBIDDEN, format, args...) }
func Conflict(format string, args ...any) *Error     { return Errorf(ECONFLICT, format, args...) }

// Internal wraps an infrastructure failure.
func Internal(message string, err error) *Error { return WrapError(EINTERNAL, message, err) }

// ErrorCode returns the code of err, EINTERNAL for foreign errors and the
// empty string for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the client-safe message of err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Message
	}
	return genericMessage
}

// ErrorFields returns per-field validation messages, if any.
func ErrorFields(err error) map[string]string {
	if e, ok := asError(err); ok {
		return e.Fields
	}
	return nil
}

func IsErrorCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// GenericErrorMessage is the message substituted for internal errors.
func GenericErrorMessage() string { return genericMessage }

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
