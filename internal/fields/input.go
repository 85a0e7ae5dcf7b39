package fields

import (
	"reflect"
	"sort"
	"strings"

	"github.com/vk/pluginrig/internal/anyfield"
	"github.com/vk/pluginrig/internal/bounds"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/hashing"
)

// Input is the descriptor for one named module input: a declared type, the
// metadata a module author attaches to it, the domain checks a value must
// satisfy, and at most one current value.
type Input struct {
	typ   reflect.Type
	byRef bool

	desc        string
	optional    bool
	transparent bool

	checks []bounds.Check
	value  anyfield.Field
}

// NewInput creates a descriptor with no declared type. A value cannot be
// stored until a type is declared.
func NewInput() *Input { return &Input{} }

// DeclareType fixes the input's declared type to T, stored by value.
// Declaring the same type again is a no-op; pointer types are a contract
// violation and panic.
func DeclareType[T any](i *Input) *Input {
	return i.SetType(reflect.TypeFor[T]())
}

// DeclareRefType fixes the input's declared type to T, stored by read-only
// reference: Change accepts *T and the input borrows the caller's value
// instead of copying it. Large payloads use this to avoid copies.
func DeclareRefType[T any](i *Input) *Input {
	i.SetType(reflect.TypeFor[T]())
	i.byRef = true
	return i
}

// SetType is the runtime-typed form of DeclareType.
func (i *Input) SetType(t reflect.Type) *Input {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.UnsafePointer {
		panic("fields: input types must be value types; declare a by-reference input instead")
	}
	if i.typ == t {
		return i
	}
	if i.typ != nil {
		panic("fields: input type already declared as " + i.typ.String())
	}
	i.typ = t
	return i
}

// Type returns the declared type, or nil while undeclared.
func (i *Input) Type() reflect.Type { return i.typ }

// SetDescription attaches the human-readable purpose of the input.
func (i *Input) SetDescription(d string) *Input {
	i.desc = d
	return i
}

// Description returns the attached description.
func (i *Input) Description() string { return i.desc }

// MakeOptional marks the input as not required for readiness.
func (i *Input) MakeOptional() *Input {
	i.optional = true
	return i
}

// MakeRequired marks the input as required (the default).
func (i *Input) MakeRequired() *Input {
	i.optional = false
	return i
}

// MakeTransparent excludes the input's value from the context hash, so
// different values memoize identically. Verbosity knobs and debug switches
// are the usual candidates.
func (i *Input) MakeTransparent() *Input {
	i.transparent = true
	return i
}

// MakeOpaque includes the input's value in the context hash (the default).
func (i *Input) MakeOpaque() *Input {
	i.transparent = false
	return i
}

// IsOptional reports whether the input may be left unset.
func (i *Input) IsOptional() bool { return i.optional }

// IsTransparent reports whether the input is excluded from hashing.
func (i *Input) IsTransparent() bool { return i.transparent }

// AddCheck registers a domain check. If the input already holds a value the
// value must satisfy the new check, otherwise the registration fails with
// out-of-domain and the check is not kept.
func (i *Input) AddCheck(c bounds.Check) error {
	if i.HasValue() && !c.OK(i.value.Value()) {
		return fault.New(fault.OutOfDomain, "stored value %s fails new check %q", i.value, c.Label())
	}
	i.checks = append(i.checks, c)
	return nil
}

// CheckLabels returns the labels of the registered checks, the implicit
// type check first.
func (i *Input) CheckLabels() []string {
	labels := make([]string, 0, len(i.checks)+1)
	if i.typ != nil {
		labels = append(labels, "Type == "+i.typ.String())
	}
	for _, c := range i.checks {
		labels = append(labels, c.Label())
	}
	return labels
}

// Change validates v and stores it. The type must have been declared
// (not-ready otherwise), v's decayed type must equal the declared type
// (bad-type otherwise), and v must pass every registered check
// (out-of-domain otherwise). For a by-reference input a *T borrows the
// caller's value; a plain T stores a read-only copy. For a by-value input a
// *T is dereferenced and copied.
func (i *Input) Change(v any) error {
	f, err := i.admit(v)
	if err != nil {
		return err
	}
	i.value = f
	return nil
}

// admit runs the full validation pipeline and returns the field that would
// be stored, without storing it.
func (i *Input) admit(v any) (anyfield.Field, error) {
	if i.typ == nil {
		return anyfield.Field{}, fault.New(fault.NotReady, "input has no declared type")
	}
	if v == nil {
		return anyfield.Field{}, fault.New(fault.BadType, "cannot store nil in a %s input", i.typ)
	}

	var f anyfield.Field
	vt := reflect.TypeOf(v)
	switch {
	case vt == i.typ:
		if i.byRef {
			box := reflect.New(i.typ)
			box.Elem().Set(reflect.ValueOf(v))
			f = anyfield.BorrowConst(box)
		} else {
			f = anyfield.FromAny(v)
		}
	case vt.Kind() == reflect.Pointer && vt.Elem() == i.typ:
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return anyfield.Field{}, fault.New(fault.BadType, "cannot store nil in a %s input", i.typ)
		}
		if i.byRef {
			f = anyfield.BorrowConst(rv)
		} else {
			f = anyfield.FromAny(rv.Elem().Interface())
		}
	default:
		return anyfield.Field{}, fault.New(fault.BadType, "declared type is %s, got %s", i.typ, vt)
	}

	for _, c := range i.checks {
		if !c.OK(f.Value()) {
			return anyfield.Field{}, fault.New(fault.OutOfDomain, "value %v fails check %q", f, c.Label()).
				WithField("Checks", c.Label())
		}
	}
	return f, nil
}

// Validate reports whether v could be stored, without storing it.
func (i *Input) Validate(v any) error {
	_, err := i.admit(v)
	return err
}

// HasValue reports whether a value is stored.
func (i *Input) HasValue() bool { return !i.value.Empty() }

// Ready reports whether the input blocks module readiness: an input is
// ready when it is optional or holds a value.
func (i *Input) Ready() bool { return i.optional || i.HasValue() }

// Field returns the stored value container (possibly empty).
func (i *Input) Field() anyfield.Field { return i.value }

// InputValue retrieves the stored value as T.
func InputValue[T any](i *Input) (T, error) {
	return anyfield.Cast[T](i.value)
}

// HashContent contributes the input to a context hash: the value's digest
// when the input is opaque and holds a value, the zero digest when it is
// transparent or empty.
func (i *Input) HashContent(h *hashing.Hasher) {
	if i.transparent || !i.HasValue() {
		h.WriteZero()
		return
	}
	i.value.HashContent(h)
}

// Equal is structural: declared type, stored value, description, flags and
// the set of check labels. Check order does not participate.
func (i *Input) Equal(other *Input) bool {
	if i.typ != other.typ ||
		i.desc != other.desc ||
		i.optional != other.optional ||
		i.transparent != other.transparent {
		return false
	}
	if !i.value.Equal(other.value) {
		return false
	}
	return strings.Join(sortedLabels(i.checks), "\x00") ==
		strings.Join(sortedLabels(other.checks), "\x00")
}

func sortedLabels(cs []bounds.Check) []string {
	labels := make([]string, len(cs))
	for n, c := range cs {
		labels[n] = c.Label()
	}
	sort.Strings(labels)
	return labels
}

// Clone deep-copies the descriptor.
func (i *Input) Clone() *Input {
	c := *i
	c.checks = append([]bounds.Check(nil), i.checks...)
	c.value = i.value.Clone()
	return &c
}
