package schema

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"sync"

	"github.com/thebagchi/rrc-uper/lib/per"
)

// Integer is an INTEGER type under a precomputed constraint.
type Integer struct {
	Constraint per.Constraint
}

// NewInteger returns INTEGER (lb..ub).
func NewInteger(lb, ub int64) *Integer {
	return &Integer{Constraint: per.Constrained(lb, ub)}
}

func (t *Integer) Encode(e *per.Encoder, v any) error {
	n, ok := toInt64(v)
	if !ok {
		return typeError("INTEGER", v)
	}
	return e.EncodeInteger(n, t.Constraint)
}

func (t *Integer) Decode(d *per.Decoder) (any, error) {
	return d.DecodeInteger(t.Constraint)
}

// Boolean is the BOOLEAN type.
type Boolean struct{}

func (Boolean) Encode(e *per.Encoder, v any) error {
	b, ok := v.(bool)
	if !ok {
		return typeError("BOOLEAN", v)
	}
	return e.EncodeBoolean(b)
}

func (Boolean) Decode(d *per.Decoder) (any, error) {
	return d.DecodeBoolean()
}

// Null is the NULL type. Its value is nil.
type Null struct{}

func (Null) Encode(e *per.Encoder, v any) error {
	return e.EncodeNull()
}

func (Null) Decode(d *per.Decoder) (any, error) {
	return nil, d.DecodeNull()
}

// Enumerated is an ENUMERATED type. Values are the item names; Extensions lists
// the items after the extension marker that this build knows.
type Enumerated struct {
	Values     []string
	Extensions []string
	Extensible bool

	once sync.Once
	dom  per.Enumeration
}

// NewEnumerated returns a non-extensible ENUMERATED with the given items.
func NewEnumerated(values ...string) *Enumerated {
	return &Enumerated{Values: values}
}

func (t *Enumerated) domain() per.Enumeration {
	t.once.Do(func() {
		t.dom = per.NewEnumeration(uint64(len(t.Values)), uint64(len(t.Extensions)), t.Extensible || len(t.Extensions) > 0)
	})
	return t.dom
}

func (t *Enumerated) index(name string) (uint64, bool) {
	for i, v := range t.Values {
		if v == name {
			return uint64(i), true
		}
	}
	for i, v := range t.Extensions {
		if v == name {
			return uint64(len(t.Values) + i), true
		}
	}
	return 0, false
}

func (t *Enumerated) Encode(e *per.Encoder, v any) error {
	domain := t.domain()
	switch value := v.(type) {
	case string:
		index, ok := t.index(value)
		if !ok {
			return fmt.Errorf("%w: unknown enumeration item %q", per.ErrConstraintViolation, value)
		}
		return e.EncodeEnumerated(index, domain)
	case Unrecognized:
		if !domain.Extensible || value.Index < domain.Count() {
			return fmt.Errorf("%w: enumeration index %d is not an unknown extension", per.ErrConstraintViolation, value.Index)
		}
		if err := e.EncodeExtensionBit(true); err != nil {
			return err
		}
		return e.EncodeNormallySmallNonNegativeWholeNumber(value.Index - domain.Root)
	}
	return typeError("ENUMERATED", v)
}

func (t *Enumerated) Decode(d *per.Decoder) (any, error) {
	index, err := d.DecodeEnumerated(t.domain())
	if errors.Is(err, per.ErrUnknownExtension) {
		return Unrecognized{Index: index}, nil
	}
	if err != nil {
		return nil, err
	}
	if index < uint64(len(t.Values)) {
		return t.Values[index], nil
	}
	return t.Extensions[index-uint64(len(t.Values))], nil
}

// sizeCache builds the per.SizeConstraint of a type's bounds on first use.
type sizeCache struct {
	once sync.Once
	size per.SizeConstraint
	err  error
}

func (c *sizeCache) get(lb, ub *uint64, extensible bool) (per.SizeConstraint, error) {
	c.once.Do(func() {
		c.size, c.err = per.NewSizeConstraint(lb, ub, extensible)
		if c.err != nil {
			c.err = fmt.Errorf("%w: %v", per.ErrConstraintViolation, c.err)
		}
	})
	return c.size, c.err
}

// BitString is a BIT STRING (SIZE(Lb..Ub)) type. Nil bounds are unconstrained.
type BitString struct {
	Lb, Ub     *uint64
	Extensible bool

	cache sizeCache
}

// FixedBitString returns BIT STRING (SIZE(n)).
func FixedBitString(n uint64) *BitString {
	return &BitString{Lb: &n, Ub: &n}
}

func (t *BitString) Encode(e *per.Encoder, v any) error {
	size, err := t.cache.get(t.Lb, t.Ub, t.Extensible)
	if err != nil {
		return err
	}
	switch value := v.(type) {
	case asn1.BitString:
		return e.EncodeBitString(&value, size)
	case *asn1.BitString:
		return e.EncodeBitString(value, size)
	}
	return typeError("BIT STRING", v)
}

func (t *BitString) Decode(d *per.Decoder) (any, error) {
	size, err := t.cache.get(t.Lb, t.Ub, t.Extensible)
	if err != nil {
		return nil, err
	}
	return d.DecodeBitString(size)
}

// OctetString is an OCTET STRING (SIZE(Lb..Ub)) type. Nil bounds are unconstrained.
type OctetString struct {
	Lb, Ub     *uint64
	Extensible bool

	cache sizeCache
}

func (t *OctetString) Encode(e *per.Encoder, v any) error {
	value, ok := v.([]byte)
	if !ok {
		return typeError("OCTET STRING", v)
	}
	size, err := t.cache.get(t.Lb, t.Ub, t.Extensible)
	if err != nil {
		return err
	}
	return e.EncodeOctetString(value, size)
}

func (t *OctetString) Decode(d *per.Decoder) (any, error) {
	size, err := t.cache.get(t.Lb, t.Ub, t.Extensible)
	if err != nil {
		return nil, err
	}
	return d.DecodeOctetString(size)
}

// SequenceOf is a SEQUENCE (SIZE(Lb..Ub)) OF Element type.
type SequenceOf struct {
	Element    Type
	Lb, Ub     *uint64
	Extensible bool

	cache sizeCache
}

func (t *SequenceOf) Encode(e *per.Encoder, v any) error {
	items, ok := v.([]any)
	if !ok {
		return typeError("SEQUENCE OF", v)
	}
	size, err := t.cache.get(t.Lb, t.Ub, t.Extensible)
	if err != nil {
		return err
	}
	return per.EncodeSequenceOf(e, items, size, t.Element.Encode)
}

func (t *SequenceOf) Decode(d *per.Decoder) (any, error) {
	size, err := t.cache.get(t.Lb, t.Ub, t.Extensible)
	if err != nil {
		return nil, err
	}
	items, err := per.DecodeSequenceOf(d, size, t.Element.Decode)
	if err != nil {
		return nil, err
	}
	return items, nil
}
