package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Application error codes.
const (
	ECONFLICT     = "conflict"
	EINTERNAL     = "internal"
	EINVALID      = "invalid"
	ENOTFOUND     = "not_found"
	EUNAUTHORIZED = "unauthorized"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message. Field is set when
// the error belongs to a single form field, so that handlers can show the
// message next to that field when re-rendering a form.
//
// Any non-application error (such as a disk error) is reported as an
// EINTERNAL error and the human user only sees "Internal error".
type Error struct {
	Code    string
	Field   string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("error: code=%s field=%s message=%s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// FieldErrorf returns an EINVALID Error attached to a single form field.
func FieldErrorf(field string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    EINVALID,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// ErrorField unwraps an application error and returns the form field it belongs to.
func ErrorField(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// codes maps application error codes to http status codes.
var codes = map[string]int{
	ECONFLICT:     http.StatusConflict,
	EINVALID:      http.StatusBadRequest,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
	EINTERNAL:     http.StatusInternalServerError,
}

// HTTPStatus returns the http status code for the code of an application error.
func HTTPStatus(err error) int {
	if code, ok := codes[ErrorCode(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

var (
	// IdInvalid is returned when an invalid ID is provided to a method like Delete.
	IdInvalid = &Error{Code: EINVALID, Message: "The ID provided is invalid."}
	// UserIdValid is returned when a record is about to be stored without an owning user.
	UserIdValid = &Error{Code: EINVALID, Message: "A user ID is required."}
	// RememberTooShort is returned when a remember token is not at least 32 bytes.
	RememberTooShort = &Error{Code: EINTERNAL, Message: "The remember token must be at least 32 bytes."}
	// RememberHashEmpty is returned when a create or update is attempted
	// without a user remember token hash.
	RememberHashEmpty = &Error{Code: EINTERNAL, Message: "A remember token hash is required."}
)
