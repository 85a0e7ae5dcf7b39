// Package proptype implements property types: the statically declared
// contracts a module can satisfy.
//
// A property type names an ordered sequence of typed input fields and an
// ordered sequence of typed result fields. The ordering is the API: it is
// what lets a caller pass positional arguments and get positional returns
// while the engine works in named field maps throughout. A property type is
// an ordinary Go struct (usually empty) with value-receiver Inputs and
// Results methods built from the declaration helpers below; its identity is
// its reflect.Type.
package proptype

import (
	"reflect"

	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
)

// PropertyType is the contract a property-type struct implements. Inputs
// and Results instantiate fresh descriptor maps each call; descriptors are
// mutable and must not be shared between instantiations.
type PropertyType interface {
	Inputs() fields.InputMap
	Results() fields.ResultMap
}

// ID is the identity of a property type.
type ID = reflect.Type

// IDOf returns the identity of the property type PT.
func IDOf[PT PropertyType]() ID {
	return reflect.TypeFor[PT]()
}

// IDFor returns the identity of an instantiated property type.
func IDFor(pt PropertyType) ID {
	return reflect.TypeOf(pt)
}

// Name renders a property-type identity for error messages and documents.
func Name(id ID) string {
	if id == nil {
		return "<none>"
	}
	return id.String()
}

// DeclareInputs starts an input declaration.
func DeclareInputs() fields.InputMap { return fields.NewInputMap() }

// DeclareResults starts a result declaration.
func DeclareResults() fields.ResultMap { return fields.NewResultMap() }

// AddInputField appends a by-value input field of type T. Keys must be
// unique case-insensitively within one property type; a duplicate is a
// declaration bug and panics. The returned descriptor is live in the map,
// so metadata can be chained onto it.
func AddInputField[T any](m fields.InputMap, key string) *fields.Input {
	assertNewKey(m.Has(key), key)
	in := fields.DeclareType[T](fields.NewInput())
	m.Set(key, in)
	return in
}

// AddRefInputField appends a by-reference input field of type T, for
// payloads too large to copy per call.
func AddRefInputField[T any](m fields.InputMap, key string) *fields.Input {
	assertNewKey(m.Has(key), key)
	in := fields.DeclareRefType[T](fields.NewInput())
	m.Set(key, in)
	return in
}

// AddResultField appends a result field of type T.
func AddResultField[T any](m fields.ResultMap, key string) *fields.Result {
	assertNewKey(m.Has(key), key)
	r := fields.DeclareResultType[T](fields.NewResult())
	m.Set(key, r)
	return r
}

func assertNewKey(exists bool, key string) {
	if exists {
		panic("proptype: duplicate field key " + key)
	}
}

// ExtendInputs starts an input declaration from the parent property type P,
// so a derived property type's own fields follow its parent's.
func ExtendInputs[P PropertyType]() fields.InputMap {
	var p P
	return p.Inputs()
}

// ExtendResults is the result-side counterpart of ExtendInputs.
func ExtendResults[P PropertyType]() fields.ResultMap {
	var p P
	return p.Results()
}

// WrapInputs stores the positional args into m under PT's declared keys, in
// declaration order. The arity must match PT's input field count exactly
// and each argument must convert to the declared type of its slot.
func WrapInputs[PT PropertyType](m fields.InputMap, args ...any) (fields.InputMap, error) {
	var pt PT
	keys := pt.Inputs().Keys()
	if len(args) != len(keys) {
		return nil, fault.New(fault.BadType, "%s takes %d positional inputs, got %d",
			Name(IDOf[PT]()), len(keys), len(args))
	}
	for n, key := range keys {
		in, err := m.At(key)
		if err != nil {
			return nil, err
		}
		if err := in.Change(args[n]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// UnwrapInputs reads PT's declared keys out of m in declaration order and
// returns their values positionally.
func UnwrapInputs[PT PropertyType](m fields.InputMap) ([]any, error) {
	var pt PT
	keys := pt.Inputs().Keys()
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		in, err := m.At(key)
		if err != nil {
			return nil, err
		}
		out = append(out, in.Field().Value())
	}
	return out, nil
}

// WrapResults stores the positional values into m under PT's declared
// result keys, in declaration order.
func WrapResults[PT PropertyType](m fields.ResultMap, vals ...any) (fields.ResultMap, error) {
	var pt PT
	keys := pt.Results().Keys()
	if len(vals) != len(keys) {
		return nil, fault.New(fault.BadType, "%s yields %d results, got %d values",
			Name(IDOf[PT]()), len(keys), len(vals))
	}
	for n, key := range keys {
		r, err := m.At(key)
		if err != nil {
			return nil, err
		}
		if err := r.Change(vals[n]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// UnwrapResults reads PT's declared result keys out of m in declaration
// order and returns their values positionally.
func UnwrapResults[PT PropertyType](m fields.ResultMap) ([]any, error) {
	var pt PT
	keys := pt.Results().Keys()
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		r, err := m.At(key)
		if err != nil {
			return nil, err
		}
		out = append(out, r.Field().Value())
	}
	return out, nil
}
