// Package schema describes ASN.1 types as data and encodes or decodes their values
// with one generic engine on top of the per package.
//
// A message schema is a tree of descriptors (Sequence, Choice, Integer, ...). Values
// use plain Go types:
//
//	Integer      int64 (any Go integer type is accepted on encode)
//	Boolean      bool
//	Null         nil
//	Enumerated   string, or Unrecognized for unknown extension values
//	BitString    asn1.BitString
//	OctetString  []byte
//	SequenceOf   []any
//	Sequence     Record; absent OPTIONAL components are missing keys
//	Choice       Selection, or Unrecognized for unknown extension alternatives
package schema

import (
	"fmt"

	"github.com/thebagchi/rrc-uper/lib/per"
)

// Type is an ASN.1 type description able to encode and decode its values.
type Type interface {
	Encode(e *per.Encoder, v any) error
	Decode(d *per.Decoder) (any, error)
}

// Record is the value of a Sequence, keyed by component name.
type Record map[string]any

// Selection is the value of a Choice: the chosen alternative and its value.
// A new Selection replaces the whole previous value; there is no way to hold a
// name with another alternative's payload.
type Selection struct {
	Name  string
	Value any
}

// Unrecognized is an enumeration value or choice alternative from a newer release
// of the schema. Index is the full index (root count + extension index). Raw holds
// the open type contents of a choice alternative, so the value can be relayed.
type Unrecognized struct {
	Index uint64
	Raw   []byte
}

// Marshal encodes v as a complete PDU. An empty encoding becomes a single zero
// octet (X.691 10.1.3).
func Marshal(t Type, v any) ([]byte, error) {
	e := per.NewEncoder()
	if err := t.Encode(e, v); err != nil {
		return nil, err
	}
	data := e.Bytes()
	if len(data) == 0 {
		return []byte{0x00}, nil
	}
	return data, nil
}

// Unmarshal decodes a complete PDU.
func Unmarshal(t Type, data []byte, opts ...per.DecoderOption) (any, error) {
	d := per.NewDecoder(data, opts...)
	return t.Decode(d)
}

func typeError(want string, v any) error {
	return fmt.Errorf("%w: expected %s value, got %T", per.ErrConstraintViolation, want, v)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
