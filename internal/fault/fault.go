// Package fault defines the typed errors surfaced by the engine core.
//
// Every failure mode the engine can surface carries a short machine-readable
// Kind plus a structured payload naming the offending fields, so callers can
// branch on the category without parsing message text.
package fault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a category of engine failure.
type Kind string

const (
	// NotReady means a readiness precondition was violated. The payload
	// lists the missing inputs and unbound submodule keys.
	NotReady Kind = "not-ready"

	// BadType means a value's runtime type does not match a declared type.
	BadType Kind = "bad-type"

	// OutOfDomain means a value failed a registered bounds check. The
	// payload includes the failing check's label.
	OutOfDomain Kind = "out-of-domain"

	// UnknownKey means a lookup used a key that was never declared.
	UnknownKey Kind = "unknown-key"

	// AlreadyExists means an insertion conflicted with an existing key.
	AlreadyExists Kind = "already-exists"

	// NotFound means a map lookup failed.
	NotFound Kind = "not-found"

	// Locked means a mutation was attempted on a locked module.
	Locked Kind = "locked"

	// BadCast means an AnyField cast targeted an incompatible type.
	BadCast Kind = "bad-cast"

	// PTUnsatisfied means a submodule binding was attempted with a module
	// that does not satisfy the required property type.
	PTUnsatisfied Kind = "pt-unsatisfied"

	// BackendIO means the cache's backing store failed.
	BackendIO Kind = "backend-io"
)

// Error is the concrete error type raised by the engine core.
type Error struct {
	Kind    Kind
	Message string

	// Fields groups offending keys by category, e.g. "Inputs" -> the set of
	// input keys that are missing values. Nil when the failure has no
	// per-field detail.
	Fields map[string][]string

	// Err is the wrapped cause, if any (backing-store errors mostly).
	Err error
}

// New builds an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithField appends a key to the named payload category and returns the
// receiver for chaining.
func (e *Error) WithField(category, key string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[category] = append(e.Fields[category], key)
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		cats := make([]string, 0, len(e.Fields))
		for c := range e.Fields {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Fprintf(&b, " [%s: %s]", c, strings.Join(e.Fields[c], ", "))
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is (or wraps) an engine Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
