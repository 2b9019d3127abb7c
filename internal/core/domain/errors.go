package domain

import (
	"errors"
	"fmt"
)

// Kind is the sum type of error categories netsimd's components report,
// per spec.md §7. Transports and the front end map a Kind to their own
// wire representation (grpc.Status codes, REST JSON bodies).
type Kind int

const (
	KindInternal Kind = iota
	KindParseError
	KindNotFound
	KindInvalidArgument
	KindAlreadyExists
	KindUnavailable
	KindIoError
)

func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "ParseError"
	case KindNotFound:
		return "NotFound"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindUnavailable:
		return "Unavailable"
	case KindIoError:
		return "IoError"
	default:
		return "Internal"
	}
}

// Error is netsimd's uniform error type. Every component that can fail in
// a way a caller needs to distinguish returns one of these rather than a
// bare error, so transports can translate Kind directly into a status
// code without string-matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error with the given kind and formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error from an existing error without losing it.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting
// to KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
