// Package apperr defines the error kinds shared by the services and the HTTP
// layer. Callers dispatch on Kind, never on message text.
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

const (
	CodeValidation = "validation_failed"
	CodeInternal   = "internal_error"
)

// Error is a tagged domain error. Two errors match under errors.Is when they
// share Kind and Code, so sentinels can be compared against errors carrying a
// more specific message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error

	// Details is client-safe context rendered with non-internal errors.
	Details interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details interface{}) *Error {
	c := *e
	c.Details = details
	return &c
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// ErrValidation matches every validation error regardless of message.
var ErrValidation = New(KindValidation, CodeValidation, "invalid input")

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

// Internal hides err behind a caller-safe message.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, CodeInternal, message, err)
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err; anything untagged is internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
