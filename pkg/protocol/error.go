package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can decide how to react.
type Kind int

const (
	// KindGeneral covers malformed payloads and unexpected failures.
	KindGeneral Kind = iota
	// KindCommunication covers timeouts, connection failures and unexpected HTTP statuses. The
	// request is expected to succeed on a later attempt.
	KindCommunication
	// KindAuthentication indicates missing or rejected credentials. The user must provide new
	// credentials before polling can resume.
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindCommunication:
		return "communication"
	case KindAuthentication:
		return "authentication"
	}
	return "general"
}

// Error is returned by every client operation that fails.
type Error struct {
	Kind Kind
	Err  error
}

var (
	// ErrGeneral matches any Error of kind KindGeneral when used with errors.Is.
	ErrGeneral = &Error{Kind: KindGeneral}
	// ErrCommunication matches any Error of kind KindCommunication when used with errors.Is.
	ErrCommunication = &Error{Kind: KindCommunication}
	// ErrAuthentication matches any Error of kind KindAuthentication when used with errors.Is.
	ErrAuthentication = &Error{Kind: KindAuthentication}
)

// NewError returns an Error of the given kind with a formatted message.
func NewError(kind Kind, format string, a ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, a...)}
}

// Wrap classifies err. Errors that already carry a Kind are returned unchanged.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the first Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindGeneral, false
}

// IsAuthentication returns true if err requires the user to re-authenticate.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsCommunication returns true if err was caused by a transport-level failure.
func IsCommunication(err error) bool {
	return errors.Is(err, ErrCommunication)
}

// IsGeneral returns true if err was caused by a malformed payload or an unexpected failure.
func IsGeneral(err error) bool {
	return errors.Is(err, ErrGeneral)
}

// Temporary returns true if err is likely to go away without user action, i.e., anything except
// an authentication failure.
func Temporary(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	return !ok || kind != KindAuthentication
}
