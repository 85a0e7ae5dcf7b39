package anyfield

import (
	"reflect"

	"github.com/vk/pluginrig/internal/fault"
)

// Cast retrieves the wrapped value as a copy of type T. A value cast is
// permitted for every discipline; it fails only when T is not the wrapped
// type.
func Cast[T any](f Field) (T, error) {
	var zero T
	want := reflect.TypeFor[T]()
	if f.Empty() {
		return zero, fault.New(fault.BadCast, "cannot cast an empty field to %s", want)
	}
	if want != f.typ {
		return zero, fault.New(fault.BadCast, "field holds %s, not %s", f.typ, want)
	}
	return f.val.Interface().(T), nil
}

// MustCast is Cast for call sites where the type was already checked; it
// panics on a bad cast.
func MustCast[T any](f Field) T {
	v, err := Cast[T](f)
	if err != nil {
		panic(err)
	}
	return v
}

// Pointer retrieves a mutable alias of the wrapped value. It is permitted
// only for mutable disciplines (owned mutable values and mutable
// references); read-only fields refuse with a bad-cast error.
func Pointer[T any](f Field) (*T, error) {
	want := reflect.TypeFor[T]()
	if f.Empty() {
		return nil, fault.New(fault.BadCast, "cannot cast an empty field to *%s", want)
	}
	if want != f.typ {
		return nil, fault.New(fault.BadCast, "field holds %s, not %s", f.typ, want)
	}
	if !f.Mutable() {
		return nil, fault.New(fault.BadCast, "field is %s; mutable access denied", f.disc)
	}
	return f.val.Addr().Interface().(*T), nil
}

// IsConvertible reports whether Cast[T] would succeed.
func IsConvertible[T any](f Field) bool {
	return !f.Empty() && f.typ == reflect.TypeFor[T]()
}

// IsMutablyConvertible reports whether Pointer[T] would succeed.
func IsMutablyConvertible[T any](f Field) bool {
	return IsConvertible[T](f) && f.Mutable()
}

// Value returns the wrapped value as an `any`. The returned value is a
// copy for value kinds; mutating it never writes through to the field.
func (f Field) Value() any {
	if f.Empty() {
		return nil
	}
	return f.val.Interface()
}
