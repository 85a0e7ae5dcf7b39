package fields

import (
	"reflect"

	"github.com/vk/pluginrig/internal/anyfield"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/hashing"
)

// Result is the descriptor for one named module result. It is the output
// counterpart of Input without the optional/transparent flags and without
// domain checks; a module vouches for what it computes.
type Result struct {
	typ   reflect.Type
	desc  string
	value anyfield.Field
}

// NewResult creates a descriptor with no declared type.
func NewResult() *Result { return &Result{} }

// DeclareResultType fixes the result's declared type to T.
func DeclareResultType[T any](r *Result) *Result {
	return r.SetType(reflect.TypeFor[T]())
}

// SetType is the runtime-typed form of DeclareResultType.
func (r *Result) SetType(t reflect.Type) *Result {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.UnsafePointer {
		panic("fields: result types must be value types")
	}
	if r.typ == t {
		return r
	}
	if r.typ != nil {
		panic("fields: result type already declared as " + r.typ.String())
	}
	r.typ = t
	return r
}

// Type returns the declared type, or nil while undeclared.
func (r *Result) Type() reflect.Type { return r.typ }

// SetDescription attaches the human-readable purpose of the result.
func (r *Result) SetDescription(d string) *Result {
	r.desc = d
	return r
}

// Description returns the attached description.
func (r *Result) Description() string { return r.desc }

// Change stores v. The declared type is accepted by value or through a
// pointer; a pointer is dereferenced and shared read-only.
func (r *Result) Change(v any) error {
	if r.typ == nil {
		return fault.New(fault.NotReady, "result has no declared type")
	}
	if v == nil {
		return fault.New(fault.BadType, "cannot store nil in a %s result", r.typ)
	}
	vt := reflect.TypeOf(v)
	switch {
	case vt == r.typ:
		r.value = anyfield.FromAny(v)
	case vt.Kind() == reflect.Pointer && vt.Elem() == r.typ:
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return fault.New(fault.BadType, "cannot store nil in a %s result", r.typ)
		}
		r.value = anyfield.BorrowConst(rv)
	default:
		return fault.New(fault.BadType, "declared type is %s, got %s", r.typ, vt)
	}
	return nil
}

// HasValue reports whether a value is stored.
func (r *Result) HasValue() bool { return !r.value.Empty() }

// Field returns the stored value container (possibly empty).
func (r *Result) Field() anyfield.Field { return r.value }

// ResultValue retrieves the stored value as T.
func ResultValue[T any](r *Result) (T, error) {
	return anyfield.Cast[T](r.value)
}

// HashContent contributes the stored value's digest, or the zero digest
// when empty.
func (r *Result) HashContent(h *hashing.Hasher) {
	r.value.HashContent(h)
}

// Equal is structural on declared type, description and stored value.
func (r *Result) Equal(other *Result) bool {
	return r.typ == other.typ && r.desc == other.desc && r.value.Equal(other.value)
}

// Clone deep-copies the descriptor.
func (r *Result) Clone() *Result {
	c := *r
	c.value = r.value.Clone()
	return &c
}
