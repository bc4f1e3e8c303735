// Package httperr defines the error taxonomy shared by the auth service and
// its HTTP handlers. Service code returns these; handlers translate them into
// JSON responses without inspecting flow-specific details.
package httperr

import (
	"errors"
	"net/http"
)

// Error couples a client-facing message with the HTTP status it should be
// served with. The wrapped cause, when present, is for logs only and never
// reaches the client.
type Error struct {
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validation reports missing or malformed input.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// UsernameConflict reports a duplicate username at registration.
func UsernameConflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}

// EmailConflict reports a duplicate email at registration. The original API
// distinguishes it from a username conflict by status code.
func EmailConflict(message string) *Error {
	return &Error{Status: http.StatusTeapot, Message: message}
}

// NotFound reports an unknown account.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// Unauthenticated reports a bad password or an invalid/expired token.
func Unauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// Forbidden reports a role, CSRF, or verification-state rejection.
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// Upstream reports a failed external dependency (store, mail relay, OAuth
// provider). The cause is retained for logging.
func Upstream(message string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, cause: cause}
}

// Status extracts the HTTP status carried by err, defaulting to 500 for
// anything outside the taxonomy.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Message extracts the client-facing message carried by err. Untyped errors
// collapse to a generic message so internals never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
