package anyfield

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/pluginrig/internal/fault"
)

// envelope is the wire form of a serialized field. The type name indexes
// the registration table on the way back in; decoding a type that was never
// registered in the receiving process is an error, not a guess.
type envelope struct {
	Type       string             `msgpack:"t"`
	Discipline int8               `msgpack:"d"`
	Data       msgpack.RawMessage `msgpack:"v"`
}

// Serialize encodes the field as a self-describing binary blob. Only
// registered types serialize; see Register.
func (f Field) Serialize() ([]byte, error) {
	if f.Empty() {
		return msgpack.Marshal(envelope{})
	}
	ops := lookupType(f.typ)
	if ops == nil {
		return nil, fault.New(fault.BadType, "type %s is not registered for serialization", f.typ)
	}
	data, err := msgpack.Marshal(f.val.Interface())
	if err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "encoding %s value", ops.name)
	}
	return msgpack.Marshal(envelope{Type: ops.name, Discipline: int8(f.disc), Data: data})
}

// Deserialize decodes a blob produced by Serialize. Borrowed disciplines
// come back as owned values of the same mutability; the referent cannot be
// reconstituted across a round-trip.
func Deserialize(b []byte) (Field, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Field{}, fault.Wrap(fault.BackendIO, err, "decoding field envelope")
	}
	if env.Type == "" {
		return Field{}, nil
	}
	ops := lookupName(env.Type)
	if ops == nil {
		return Field{}, fault.New(fault.BadType, "type %s is not registered in this process", env.Type)
	}
	box := reflect.New(ops.rtype)
	if err := msgpack.Unmarshal(env.Data, box.Interface()); err != nil {
		return Field{}, fault.Wrap(fault.BackendIO, err, "decoding %s value", env.Type)
	}
	disc := OwnedMut
	switch Discipline(env.Discipline) {
	case OwnedConst, RefConst:
		disc = OwnedConst
	}
	return Field{disc: disc, typ: ops.rtype, val: box.Elem()}, nil
}

func init() {
	// The primitive vocabulary every deployment needs.
	Register[bool]()
	Register[int]()
	Register[int64]()
	Register[uint64]()
	Register[float64]()
	Register[string]()
	Register[[]byte]()
	Register[[]int]()
	Register[[]float64]()
	Register[[]string]()
	Register[map[string]string]()
}
