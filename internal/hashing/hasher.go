// Package hashing implements the engine's stable content hash.
//
// Hashes are 128-bit digests rendered as 32 lowercase hex characters. A
// digest is a function of the values fed to the Hasher and of nothing else:
// not the machine, not the process, not the address of the value. Two runs
// that feed equal values in the same order produce the same digest, which is
// what makes the digest usable as a memoization key.
//
// Values are reduced to a canonical byte encoding before being hashed. The
// encoding is kind-tagged so that, e.g., the string "1" and the int 1 cannot
// collide by accident. Top-level cv-like distinctions (a value reached
// through a pointer vs held directly) are deliberately erased: the hash of a
// value equals the hash of a reference to it.
package hashing

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"reflect"
	"sort"
)

// ZeroDigest is the digest contributed by values that are excluded from
// hashing, such as transparent module inputs.
const ZeroDigest = "00000000000000000000000000000000"

// Hashable lets a type take over its own canonical encoding.
type Hashable interface {
	HashContent(h *Hasher)
}

// Hasher accumulates values into a single content digest.
type Hasher struct {
	h hash.Hash
}

// New creates an empty Hasher.
func New() *Hasher {
	return &Hasher{h: md5.New()}
}

// WriteBytes feeds raw bytes into the digest.
func (h *Hasher) WriteBytes(b []byte) {
	h.h.Write(b)
}

// WriteString feeds a length-prefixed string into the digest.
func (h *Hasher) WriteString(s string) {
	h.writeTag('s')
	h.writeLen(len(s))
	h.h.Write([]byte(s))
}

// WriteZero feeds the zero contribution into the digest. Transparent inputs
// use this so that their values never influence a memoization key.
func (h *Hasher) WriteZero() {
	h.writeTag('z')
	var zeros [16]byte
	h.h.Write(zeros[:])
}

// Write reduces v to its canonical encoding and feeds it into the digest.
// It panics on values with no canonical encoding (channels, functions);
// such values cannot be module inputs in the first place.
func (h *Hasher) Write(v any) {
	if v == nil {
		h.writeTag('n')
		return
	}
	if hv, ok := v.(Hashable); ok {
		hv.HashContent(h)
		return
	}
	h.writeValue(reflect.ValueOf(v))
}

// Finalize returns the accumulated digest as a 32-character hex string.
// The Hasher must not be reused afterwards.
func (h *Hasher) Finalize() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Objects is a convenience that hashes the given values in order and
// returns the digest.
func Objects(vs ...any) string {
	h := New()
	for _, v := range vs {
		h.Write(v)
	}
	return h.Finalize()
}

func (h *Hasher) writeTag(t byte) {
	h.h.Write([]byte{t})
}

func (h *Hasher) writeLen(n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.h.Write(buf[:])
}

func (h *Hasher) writeValue(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Bool:
		h.writeTag('b')
		if rv.Bool() {
			h.h.Write([]byte{1})
		} else {
			h.h.Write([]byte{0})
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		h.writeTag('i')
		h.writeLen(int(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		h.writeTag('u')
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], rv.Uint())
		h.h.Write(buf[:])
	case reflect.Float32, reflect.Float64:
		h.writeTag('f')
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(rv.Float()))
		h.h.Write(buf[:])
	case reflect.Complex64, reflect.Complex128:
		h.writeTag('c')
		var buf [16]byte
		c := rv.Complex()
		binary.BigEndian.PutUint64(buf[:8], math.Float64bits(real(c)))
		binary.BigEndian.PutUint64(buf[8:], math.Float64bits(imag(c)))
		h.h.Write(buf[:])
	case reflect.String:
		h.WriteString(rv.String())
	case reflect.Slice, reflect.Array:
		h.writeTag('l')
		h.writeLen(rv.Len())
		for i := 0; i < rv.Len(); i++ {
			h.writeValue(rv.Index(i))
		}
	case reflect.Map:
		// Map iteration order is randomized, so entries are encoded
		// individually and sorted by their encoded key bytes first.
		h.writeTag('m')
		h.writeLen(rv.Len())
		type entry struct{ k, v string }
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{
				k: Objects(iter.Key().Interface()),
				v: Objects(iter.Value().Interface()),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].k < entries[j].k })
		for _, e := range entries {
			h.h.Write([]byte(e.k))
			h.h.Write([]byte(e.v))
		}
	case reflect.Struct:
		h.writeTag('t')
		h.WriteString(rv.Type().String())
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			h.writeValue(rv.Field(i))
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			h.writeTag('n')
			return
		}
		if hv, ok := rv.Interface().(Hashable); ok {
			hv.HashContent(h)
			return
		}
		h.writeValue(rv.Elem())
	default:
		panic(fmt.Sprintf("hashing: %s values have no canonical encoding", rv.Kind()))
	}
}
