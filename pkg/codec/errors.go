package codec

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
// Callers should branch on Kind (or errors.Is against the Err* sentinels)
// rather than matching error strings.
type Kind string

const (
	KindUnsupportedVersion      Kind = "UnsupportedVersion"
	KindLengthMismatch          Kind = "LengthMismatch"
	KindReservedFieldViolation  Kind = "ReservedFieldViolation"
	KindMissingInput            Kind = "MissingInput"
	KindIdentifierListShortfall Kind = "IdentifierListShortfall"
	KindIntegrityCheckFailed    Kind = "IntegrityCheckFailed"
	KindInvalidArgument         Kind = "InvalidArgument"
	KindInvalidState            Kind = "InvalidState"
	KindNotFound                Kind = "NotFound"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrUnsupportedVersion      = &Error{Kind: KindUnsupportedVersion, Message: "unsupported metadata version"}
	ErrLengthMismatch          = &Error{Kind: KindLengthMismatch, Message: "length mismatch"}
	ErrReservedFieldViolation  = &Error{Kind: KindReservedFieldViolation, Message: "reserved field is nonzero"}
	ErrMissingInput            = &Error{Kind: KindMissingInput, Message: "missing input"}
	ErrIdentifierListShortfall = &Error{Kind: KindIdentifierListShortfall, Message: "identifier list too short"}
	ErrIntegrityCheckFailed    = &Error{Kind: KindIntegrityCheckFailed, Message: "crc32 mismatch"}
	ErrInvalidArgument         = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrInvalidState            = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrNotFound                = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error is the structured error returned by the codec and the packages
// built on top of it. Message is for humans; do not match on it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrLengthMismatch)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Errorf builds a structured error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a structured error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsFormatError reports whether err describes a malformed buffer: a length
// that does not match the declared shape or a nonzero reserved field.
func IsFormatError(err error) bool {
	switch KindOf(err) {
	case KindLengthMismatch, KindReservedFieldViolation:
		return true
	}
	return false
}
