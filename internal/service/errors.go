package service

import "net/http"

// Error kinds exposed to clients. Every service failure maps to exactly one
// of these; internal detail never leaks into the message.
const (
	KindValidation            = "validation_error"
	KindDuplicateEmail        = "duplicate_email"
	KindInvalidCredentials    = "invalid_credentials"
	KindNotFound              = "not_found"
	KindInvalidOrExpiredToken = "invalid_or_expired_token"
	KindUnauthenticated       = "unauthenticated"
	KindInternal              = "server_error"
)

// Error is the machine-readable failure shape shared by all services.
type Error struct {
	Kind    string
	Message string
	Status  int
	// Fields carries per-field validation messages for KindValidation.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

func newError(kind, message string, status int) *Error {
	return &Error{Kind: kind, Message: message, Status: status}
}

// ErrInvalidCredentials is shared by "no such user" and "wrong password" so
// responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = newError(KindInvalidCredentials, "Invalid credentials.", http.StatusUnauthorized)

// ErrInvalidOrExpiredToken covers both unknown and expired reset tokens.
var ErrInvalidOrExpiredToken = newError(KindInvalidOrExpiredToken, "Invalid or expired reset token.", http.StatusBadRequest)

// ErrUnauthenticated signals a missing or invalid session context.
var ErrUnauthenticated = newError(KindUnauthenticated, "Authentication required.", http.StatusUnauthorized)

func errDuplicateEmail() *Error {
	return newError(KindDuplicateEmail, "Email already registered.", http.StatusBadRequest)
}

func errNotFound(message string) *Error {
	return newError(KindNotFound, message, http.StatusNotFound)
}

func errInternal() *Error {
	return newError(KindInternal, "Internal server error.", http.StatusInternalServerError)
}

func errValidation(fields map[string]string) *Error {
	err := newError(KindValidation, "Validation failed.", http.StatusBadRequest)
	err.Fields = fields
	return err
}
