// Package anyfield implements the engine's type-erased value container.
//
// A Field wraps exactly one value of an arbitrary Go type together with a
// storage discipline describing how the value is held: as an owned copy or
// as a borrowed reference, each either mutable or read-only. The wrapped
// type is fixed for the Field's lifetime. Equality, ordering, hashing,
// printing and serialization are polymorphic over the wrapped type and are
// resolved through a per-type operation table (see registry.go), with
// reflection-based fallbacks for unregistered types.
//
// Wrapping a raw pointer as an owned value is a contract violation and
// panics: pointer-typed inputs defeat memoization because the pointee can
// change behind the engine's back. Use Ref / ConstRef to borrow instead.
package anyfield

import (
	"fmt"
	"reflect"

	"github.com/vk/pluginrig/internal/hashing"
)

// Discipline describes how a Field holds its value.
type Discipline int

const (
	// OwnedMut holds a mutable copy of the value.
	OwnedMut Discipline = iota

	// OwnedConst holds a read-only copy of the value.
	OwnedConst

	// RefMut borrows the caller's value and may mutate it through Pointer.
	RefMut

	// RefConst borrows the caller's value read-only.
	RefConst
)

// String returns the discipline's name.
func (d Discipline) String() string {
	switch d {
	case OwnedMut:
		return "owned"
	case OwnedConst:
		return "owned const"
	case RefMut:
		return "reference"
	case RefConst:
		return "const reference"
	}
	return fmt.Sprintf("Discipline(%d)", int(d))
}

// Field is the type-erased value container. The zero Field is empty.
type Field struct {
	disc Discipline

	// typ is the decayed wrapped type. Nil means empty.
	typ reflect.Type

	// val is an addressable reflect.Value of type typ. For owned
	// disciplines it addresses a private copy; for borrowed disciplines it
	// addresses the caller's value.
	val reflect.Value
}

// Of wraps a copy of v as an owned mutable value.
func Of[T any](v T) Field {
	return newOwned(v, OwnedMut)
}

// ConstOf wraps a copy of v as an owned read-only value.
func ConstOf[T any](v T) Field {
	return newOwned(v, OwnedConst)
}

// Ref borrows the value behind p as a mutable reference.
func Ref[T any](p *T) Field {
	rejectPointerType(reflect.TypeFor[T]())
	return Field{disc: RefMut, typ: reflect.TypeFor[T](), val: reflect.ValueOf(p).Elem()}
}

// ConstRef borrows the value behind p as a read-only reference.
func ConstRef[T any](p *T) Field {
	rejectPointerType(reflect.TypeFor[T]())
	return Field{disc: RefConst, typ: reflect.TypeFor[T](), val: reflect.ValueOf(p).Elem()}
}

// BorrowConst wraps the value addressed by ptr, a reflect.Value of pointer
// kind, as a read-only reference. It is the runtime-typed sibling of
// ConstRef used by the field descriptors when a by-reference input is bound.
func BorrowConst(ptr reflect.Value) Field {
	elem := ptr.Elem()
	rejectPointerType(elem.Type())
	return Field{disc: RefConst, typ: elem.Type(), val: elem}
}

// FromAny wraps a dynamically-typed value as an owned mutable field. It is
// the runtime-typed sibling of Of, used where values arrive as `any`
// (property-type wrapping, manifests, deserialization).
func FromAny(v any) Field {
	if v == nil {
		return Field{}
	}
	f := Field{disc: OwnedMut, typ: reflect.TypeOf(v)}
	rejectPointerType(f.typ)
	box := reflect.New(f.typ).Elem()
	box.Set(reflect.ValueOf(v))
	f.val = box
	return f
}

func newOwned[T any](v T, disc Discipline) Field {
	typ := reflect.TypeFor[T]()
	rejectPointerType(typ)
	box := reflect.New(typ).Elem()
	box.Set(reflect.ValueOf(&v).Elem())
	return Field{disc: disc, typ: typ, val: box}
}

func rejectPointerType(t reflect.Type) {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.UnsafePointer {
		panic(fmt.Sprintf("anyfield: refusing to wrap pointer type %s; borrow with Ref instead", t))
	}
}

// Empty reports whether the field holds no value.
func (f Field) Empty() bool { return f.typ == nil }

// Type returns the wrapped (decayed) type, or nil for an empty field.
func (f Field) Type() reflect.Type { return f.typ }

// Discipline returns how the value is stored.
func (f Field) Discipline() Discipline { return f.disc }

// Mutable reports whether the wrapped value may be mutated through this
// field, i.e. whether a Pointer cast is permitted.
func (f Field) Mutable() bool {
	return f.disc == OwnedMut || f.disc == RefMut
}

// Clone returns a field of the same discipline. Owned values are copied;
// borrowed references keep aliasing the same referent.
func (f Field) Clone() Field {
	if f.Empty() {
		return Field{}
	}
	if f.disc == RefMut || f.disc == RefConst {
		return f
	}
	box := reflect.New(f.typ).Elem()
	box.Set(f.val)
	return Field{disc: f.disc, typ: f.typ, val: box}
}

// Equal reports whether the other field wraps the same type and an equal
// value. The storage discipline does not participate.
func (f Field) Equal(other Field) bool {
	if f.Empty() || other.Empty() {
		return f.Empty() == other.Empty()
	}
	if f.typ != other.typ {
		return false
	}
	return valuesEqual(f.typ, f.val.Interface(), other.val.Interface())
}

// Less orders two fields wrapping the same type. The second return is false
// when the wrapped type has no ordering, or when the types differ.
func (f Field) Less(other Field) (bool, bool) {
	if f.Empty() || other.Empty() || f.typ != other.typ {
		return false, false
	}
	return valuesLess(f.typ, f.val.Interface(), other.val.Interface())
}

// HashContent feeds the wrapped value (not the discipline) into h. An empty
// field contributes the zero digest.
func (f Field) HashContent(h *hashing.Hasher) {
	if f.Empty() {
		h.WriteZero()
		return
	}
	h.Write(f.val.Interface())
}

// String prints the wrapped value when the type is printable, and a
// "<TYPENAME 0xADDR>" placeholder otherwise.
func (f Field) String() string {
	if f.Empty() {
		return "<empty>"
	}
	v := f.val.Interface()
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if printableKind(f.typ) {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("<%s %p>", f.typ, f.val.Addr().Interface())
}

// printableKind reports whether %v output for the type is meaningful rather
// than an address dump.
func printableKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Slice, reflect.Array:
		return printableKind(t.Elem())
	case reflect.Map:
		return printableKind(t.Key()) && printableKind(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() || !printableKind(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
