// Package perr defines the error taxonomy shared by every engine subsystem.
//
// Each Kind corresponds to one row of the error-handling table: a
// human-readable message plus, where applicable, the offending path, name,
// or uuid. Callers type-switch on Kind rather than on concrete error types,
// so that a caller at the CLI boundary can print "kind: message" uniformly.
package perr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error for presentation and recovery-policy purposes.
type Kind uint8

const (
	_ Kind = iota
	ParseError
	SchemaError
	GraphInvariantError
	RegistryError
	ResolverInfeasible
	TreeHashConflict
	VcsError
	IoError
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case SchemaError:
		return "SchemaError"
	case GraphInvariantError:
		return "GraphInvariantError"
	case RegistryError:
		return "RegistryError"
	case ResolverInfeasible:
		return "ResolverInfeasible"
	case TreeHashConflict:
		return "TreeHashConflict"
	case VcsError:
		return "VcsError"
	case IoError:
		return "IoError"
	case Cancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// Error is the carrier type for every engine-surfaced failure. Path, Name,
// and UUID are filled in only when relevant to Kind; zero values are omitted
// from the rendered message.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Name    string
	UUID    string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path: %s)", msg, e.Path)
	}
	if e.Name != "" {
		msg = fmt.Sprintf("%s (name: %s)", msg, e.Name)
	}
	if e.UUID != "" {
		msg = fmt.Sprintf("%s (uuid: %s)", msg, e.UUID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with no extra diagnostic fields.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an existing error, using
// github.com/pkg/errors so the original stack trace is retained for trace
// output when the caller asks for it.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   errors.Wrap(cause, fmt.Sprintf(format, args...)),
	}
}

// WithPath returns a copy of e with Path set, for chaining onto New/Wrap.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// WithName returns a copy of e with Name set.
func (e *Error) WithName(name string) *Error {
	c := *e
	c.Name = name
	return &c
}

// WithUUID returns a copy of e with UUID set.
func (e *Error) WithUUID(uuid string) *Error {
	c := *e
	c.UUID = uuid
	return &c
}

// Is reports whether err is a *Error of the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok {
			return pe.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
