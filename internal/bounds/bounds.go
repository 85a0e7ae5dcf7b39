// Package bounds provides the composable domain-check predicates attached
// to module inputs.
//
// A check is a predicate over the input's declared value type paired with a
// short human-readable label ("> 0", "in [0, 1)"). The engine treats checks
// only through this pair; nothing introspects a predicate's structure. The
// labels end up in error payloads and in generated module documentation.
package bounds

import (
	"cmp"
	"fmt"
)

// Check pairs a predicate with its printable description.
type Check struct {
	label string
	pred  func(v any) bool
}

// New builds a check from a raw predicate over the type-erased value.
// Prefer the typed constructors; this exists for predicates that genuinely
// need to see the `any`.
func New(label string, pred func(v any) bool) Check {
	return Check{label: label, pred: pred}
}

// Typed builds a check from a predicate over the declared value type. The
// input layer validates the declared type before running domain checks, so
// a value of another type never reaches pred; if one does anyway the check
// fails rather than panics.
func Typed[T any](label string, pred func(v T) bool) Check {
	return Check{label: label, pred: func(v any) bool {
		tv, ok := v.(T)
		return ok && pred(tv)
	}}
}

// Label returns the human-readable description of the check.
func (c Check) Label() string { return c.label }

// OK reports whether v satisfies the check.
func (c Check) OK(v any) bool { return c.pred(v) }

// Equal requires the value to equal rhs.
func Equal[T comparable](rhs T) Check {
	return Typed(fmt.Sprintf("== %v", rhs), func(v T) bool { return v == rhs })
}

// NotEqual requires the value to differ from rhs.
func NotEqual[T comparable](rhs T) Check {
	return Typed(fmt.Sprintf("!= %v", rhs), func(v T) bool { return v != rhs })
}

// GreaterThan requires value > rhs.
func GreaterThan[T cmp.Ordered](rhs T) Check {
	return Typed(fmt.Sprintf("> %v", rhs), func(v T) bool { return v > rhs })
}

// GreaterThanEqual requires value >= rhs.
func GreaterThanEqual[T cmp.Ordered](rhs T) Check {
	return Typed(fmt.Sprintf(">= %v", rhs), func(v T) bool { return v >= rhs })
}

// LessThan requires value < rhs.
func LessThan[T cmp.Ordered](rhs T) Check {
	return Typed(fmt.Sprintf("< %v", rhs), func(v T) bool { return v < rhs })
}

// LessThanEqual requires value <= rhs.
func LessThanEqual[T cmp.Ordered](rhs T) Check {
	return Typed(fmt.Sprintf("<= %v", rhs), func(v T) bool { return v <= rhs })
}

// InRange requires the value to lie in the half-open interval [lo, hi).
func InRange[T cmp.Ordered](lo, hi T) Check {
	return Typed(fmt.Sprintf("in [%v, %v)", lo, hi), func(v T) bool { return v >= lo && v < hi })
}

// InClosedRange requires the value to lie in the closed interval [lo, hi].
func InClosedRange[T cmp.Ordered](lo, hi T) Check {
	return Typed(fmt.Sprintf("in [%v, %v]", lo, hi), func(v T) bool { return v >= lo && v <= hi })
}

// InOpenRange requires the value to lie in the open interval (lo, hi).
func InOpenRange[T cmp.Ordered](lo, hi T) Check {
	return Typed(fmt.Sprintf("in (%v, %v)", lo, hi), func(v T) bool { return v > lo && v < hi })
}
