// Package apperr defines the error taxonomy shared by services and
// handlers.  Services return *Error values describing what went wrong in
// domain terms; handlers translate them into HTTP responses with
// MapToHTTP.  Keeping the mapping in one place stops status codes from
// drifting between endpoints.
package apperr

import "net/http"

// Kind classifies an error for HTTP mapping and logging.
type Kind int

const (
	// Validation marks malformed or contradictory input.
	Validation Kind = iota
	// Authentication marks a failed identity check.  All authentication
	// failures surface with one generic message so callers cannot probe
	// which internal check rejected them.
	Authentication
	// Authorization marks an authenticated caller lacking a permission.
	Authorization
	// NotFound marks an unknown resource id.
	NotFound
	// Conflict marks a duplicate natural key.
	Conflict
	// Upstream marks a failed outbound dependency (geocoding).  It maps to
	// a 4xx because the caller can act on it by supplying coordinates.
	Upstream
	// System marks a persistence or infrastructure fault.
	System
)

// Error carries a kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap is New with an underlying cause attached.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// HTTPError is the wire shape of a failed request.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Code       string `json:"code"`
}

// genericAuthMessage replaces whatever internal reason failed the identity
// check, to avoid user enumeration.
const genericAuthMessage = "invalid authentication credentials"

// MapToHTTP translates any error into an HTTPError.  Unknown errors are
// reported as internal faults without leaking their message.
func MapToHTTP(err error) *HTTPError {
	e, ok := err.(*Error)
	if !ok {
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "internal server error", Code: "INTERNAL_ERROR"}
	}
	switch e.Kind {
	case Validation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: e.Message, Code: "VALIDATION_ERROR"}
	case Authentication:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: genericAuthMessage, Code: "AUTHENTICATION_ERROR"}
	case Authorization:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: e.Message, Code: "AUTHORIZATION_ERROR"}
	case NotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: e.Message, Code: "NOT_FOUND"}
	case Conflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: e.Message, Code: "CONFLICT"}
	case Upstream:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: e.Message, Code: "UPSTREAM_ERROR"}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "internal server error", Code: "INTERNAL_ERROR"}
	}
}

// KindOf returns the kind of err, or System when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return System
}
