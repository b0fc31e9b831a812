package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnauthenticated = "unauthenticated"
	ErrCodeValidation      = "validation_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal_error"
)

// Error kinds a collaborator may report. Wrap them with NewError so the
// coordinator can pick the right code.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// KindError carries a user-facing message tagged with one of the error kinds.
type KindError struct {
	Kind error
	Msg  string
}

func (e *KindError) Error() string {
	return e.Msg
}

func (e *KindError) Unwrap() error {
	return e.Kind
}

// NewError builds a KindError.
func NewError(kind error, msg string) error {
	return &KindError{Kind: kind, Msg: msg}
}

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// classify maps a collaborator error onto the protocol error. The second
// return value is false for errors with no known kind.
func classify(err error) (*CoreError, bool) {
	var kindErr *KindError
	if !errors.As(err, &kindErr) {
		return coreError(ErrCodeInternal, "internal server error"), false
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return coreError(ErrCodeUnauthenticated, kindErr.Msg), true
	case errors.Is(err, ErrValidation):
		return coreError(ErrCodeValidation, kindErr.Msg), true
	case errors.Is(err, ErrNotFound):
		return coreError(ErrCodeNotFound, kindErr.Msg), true
	case errors.Is(err, ErrConflict):
		return coreError(ErrCodeConflict, kindErr.Msg), true
	default:
		return coreError(ErrCodeInternal, "internal server error"), false
	}
}
