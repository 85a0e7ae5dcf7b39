package anyfield

import (
	"fmt"
	"reflect"
	"sync"
)

// typeOps is the per-type operation table consulted for equality, ordering
// and serialization of wrapped values.
type typeOps struct {
	name  string
	rtype reflect.Type
	equal func(a, b any) bool
	less  func(a, b any) bool // nil when the type is unordered
}

var (
	regMu  sync.RWMutex
	byType = map[reflect.Type]*typeOps{}
	byName = map[string]*typeOps{}
)

// Register makes T a registered type: its values become serializable and
// its equality/ordering resolve through the operation table instead of the
// reflection fallback. Registering the same type twice is a no-op;
// registering a second type under the same name panics.
func Register[T any]() {
	t := reflect.TypeFor[T]()
	registerType(t, typeName(t), nil, nil)
}

// RegisterEqual registers T with an explicit equality function, for types
// whose == semantics are wrong or unavailable (e.g. slices of floats that
// should compare with a tolerance).
func RegisterEqual[T any](eq func(a, b T) bool) {
	t := reflect.TypeFor[T]()
	registerType(t, typeName(t), func(a, b any) bool { return eq(a.(T), b.(T)) }, nil)
}

// RegisterOrdered registers T together with a strict-weak ordering, making
// Field.Less available for it.
func RegisterOrdered[T any](less func(a, b T) bool) {
	t := reflect.TypeFor[T]()
	registerType(t, typeName(t), nil, func(a, b any) bool { return less(a.(T), b.(T)) })
}

func registerType(t reflect.Type, name string, eq, less func(a, b any) bool) {
	regMu.Lock()
	defer regMu.Unlock()
	if existing, ok := byType[t]; ok {
		if eq != nil {
			existing.equal = eq
		}
		if less != nil {
			existing.less = less
		}
		return
	}
	if _, ok := byName[name]; ok {
		panic(fmt.Sprintf("anyfield: type name %q already registered", name))
	}
	ops := &typeOps{name: name, rtype: t, equal: eq, less: less}
	byType[t] = ops
	byName[name] = ops
}

// lookupType returns the operation table for t, or nil.
func lookupType(t reflect.Type) *typeOps {
	regMu.RLock()
	defer regMu.RUnlock()
	return byType[t]
}

// lookupName returns the operation table registered under name, or nil.
func lookupName(name string) *typeOps {
	regMu.RLock()
	defer regMu.RUnlock()
	return byName[name]
}

// TypeByName resolves a registered type name back to its reflect.Type.
func TypeByName(name string) (reflect.Type, bool) {
	ops := lookupName(name)
	if ops == nil {
		return nil, false
	}
	return ops.rtype, true
}

// NameOf returns the registered (or canonical) name for a type.
func NameOf(t reflect.Type) string { return typeName(t) }

// RegisteredTypeNames returns the names of all registered types.
func RegisteredTypeNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	return names
}

// typeName produces a stable, package-qualified name for a type. It is the
// identity used in serialized envelopes and the uuid fingerprint directory.
func typeName(t reflect.Type) string {
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.String()
}

func valuesEqual(t reflect.Type, a, b any) bool {
	if ops := lookupType(t); ops != nil && ops.equal != nil {
		return ops.equal(a, b)
	}
	if t.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// valuesLess resolves ordering for values of type t. The second return
// reports whether the type is ordered at all.
func valuesLess(t reflect.Type, a, b any) (bool, bool) {
	if ops := lookupType(t); ops != nil && ops.less != nil {
		return ops.less(a, b), true
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return av.Int() < bv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return av.Uint() < bv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return av.Float() < bv.Float(), true
	case reflect.String:
		return av.String() < bv.String(), true
	default:
		return false, false
	}
}
