// Package apperr defines the error kinds shared by the room and recording components.
// Handlers map kinds to HTTP status codes; callers match kinds with errors.Is.
package apperr

import "errors"

// Sentinel kinds. Every *Error wraps exactly one of these.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrIssuer          = errors.New("token issuer failure")
	ErrStorage         = errors.New("storage failure")
)

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports an absent room or recording.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// InvalidArgument reports a missing field or a rejected value.
func InvalidArgument(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Msg: msg}
}

// Conflict reports a state-machine violation such as a second active recording.
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Msg: msg}
}

// Issuer wraps a token SDK failure.
func Issuer(err error) error {
	return &Error{Kind: ErrIssuer, Msg: "failed to issue token", Err: err}
}

// Storage wraps a database or filesystem failure.
func Storage(msg string, err error) error {
	return &Error{Kind: ErrStorage, Msg: msg, Err: err}
}

// Message returns the client-safe message of err. Errors without a kind get a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

// IsClientError reports whether err was caused by the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConflict)
}
