package per

import (
	"encoding/asn1"
	"fmt"
	"math"

	"github.com/thebagchi/rrc-uper/lib/bitbuffer"
)

// Decoder represents an unaligned PER decoder
type Decoder struct {
	codec *bitbuffer.Reader
	// base is the absolute bit offset of codec's first bit, non-zero for the
	// nested decoders of open types.
	base                  uint64
	maxExtensionAdditions uint64
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxExtensionAdditions bounds the extension addition bitmap length accepted
// from the wire. Longer bitmaps fail with ErrConstraintViolation.
func WithMaxExtensionAdditions(n uint64) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxExtensionAdditions = n
		}
	}
}

// NewDecoder creates a new UPER decoder from encoded data
func NewDecoder(data []byte, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		codec:                 bitbuffer.NewReader(data),
		maxExtensionAdditions: DEFAULT_MAX_EXTENSION_ADDITIONS,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// nested creates a decoder over the contents of an open type that started at
// absolute bit offset base.
func (d *Decoder) nested(data []byte, base uint64) *Decoder {
	return &Decoder{
		codec:                 bitbuffer.NewReader(data),
		base:                  base,
		maxExtensionAdditions: d.maxExtensionAdditions,
	}
}

// NumRead returns the number of bits consumed so far.
func (d *Decoder) NumRead() uint64 {
	return d.codec.NumRead()
}

// Remaining returns the number of unread bits.
func (d *Decoder) Remaining() uint64 {
	return d.codec.Remaining()
}

func (d *Decoder) offset() uint64 {
	return d.base + d.codec.NumRead()
}

func (d *Decoder) read(op string, num uint8) (uint64, error) {
	offset := d.offset()
	value, err := d.codec.Read(num)
	if err != nil {
		return 0, wrap(ErrBufferOverrun, op, offset, err)
	}
	return value, nil
}

// DecodeConstrainedWholeNumber decodes a constrained whole number
// with lower bound lb and upper bound ub.
func (d *Decoder) DecodeConstrainedWholeNumber(lb, ub int64) (int64, error) {
	if lb > ub {
		return 0, violation("DecodeConstrainedWholeNumber", d.offset(), "invalid range [%d, %d]", lb, ub)
	}
	return d.decodeConstrained(RangeBits(lb, ub), lb, ub)
}

func (d *Decoder) decodeConstrained(width uint8, lb, ub int64) (int64, error) {
	if width == 0 {
		return lb, nil
	}
	offset := d.offset()
	value, err := d.read("DecodeConstrainedWholeNumber", width)
	if err != nil {
		return 0, err
	}
	// Ranges that are not a power of two leave unused codes.
	if value > uint64(ub)-uint64(lb) {
		return 0, violation("DecodeConstrainedWholeNumber", offset, "offset %d outside [%d, %d]", value, lb, ub)
	}
	return int64(uint64(lb) + value), nil
}

// DecodeNormallySmallNonNegativeWholeNumber decodes a normally small non-negative whole number.
func (d *Decoder) DecodeNormallySmallNonNegativeWholeNumber() (uint64, error) {
	bit, err := d.read("DecodeNormallySmallNonNegativeWholeNumber", 1)
	if err != nil {
		return 0, err
	}
	// 11.6.1: If the bit is 0, read 6-bit value
	if bit == 0 {
		return d.read("DecodeNormallySmallNonNegativeWholeNumber", 6)
	}
	// 11.6.2: If the bit is 1, decode as semi-constrained whole number with lb=0
	return d.decodeSemiConstrained()
}

// DecodeSemiConstrainedWholeNumber decodes a semi-constrained whole number
// with lower bound lb.
func (d *Decoder) DecodeSemiConstrainedWholeNumber(lb int64) (int64, error) {
	offset := d.offset()
	value, err := d.decodeSemiConstrained()
	if err != nil {
		return 0, err
	}
	n := int64(uint64(lb) + value)
	if n < lb {
		return 0, violation("DecodeSemiConstrainedWholeNumber", offset, "%d + %d overflows int64", lb, value)
	}
	return n, nil
}

// decodeIntegerOctets reads the length determinant and the contents octets of a
// semi-constrained or unconstrained whole number.
func (d *Decoder) decodeIntegerOctets(op string) (uint64, uint8, error) {
	offset := d.offset()
	octets, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return 0, 0, err
	}
	if octets == 0 || octets > MAX_INTEGER_OCTETS {
		return 0, 0, violation(op, offset, "integer of %d octets", octets)
	}
	width := uint8(octets * 8)
	value, err := d.read(op, width)
	if err != nil {
		return 0, 0, err
	}
	return value, width, nil
}

func (d *Decoder) decodeSemiConstrained() (uint64, error) {
	value, _, err := d.decodeIntegerOctets("DecodeSemiConstrainedWholeNumber")
	return value, err
}

// DecodeUnconstrainedWholeNumber decodes an unconstrained whole number encoded as
// a 2's-complement-binary-integer in the minimum number of octets.
func (d *Decoder) DecodeUnconstrainedWholeNumber() (int64, error) {
	value, width, err := d.decodeIntegerOctets("DecodeUnconstrainedWholeNumber")
	if err != nil {
		return 0, err
	}
	// Sign extension from the most significant contents bit.
	shift := 64 - uint(width)
	return int64(value<<shift) >> shift, nil
}

// DecodeLengthDeterminant decodes a length under SIZE(lb..ub). A missing lb means 0.
// If ub is known and below MAX_CONSTRAINED_LENGTH the length is a constrained whole
// number, otherwise it uses the unconstrained form and is validated afterwards.
func (d *Decoder) DecodeLengthDeterminant(lb, ub *uint64) (uint64, error) {
	s, err := NewSizeConstraint(lb, ub, false)
	if err != nil {
		return 0, violation("DecodeLengthDeterminant", d.offset(), "%v", err)
	}
	return d.decodeLength(s)
}

func (d *Decoder) decodeLength(s SizeConstraint) (uint64, error) {
	if s.constrained() {
		value, err := d.decodeConstrained(s.bits, int64(s.lower()), int64(*s.ub))
		if err != nil {
			return 0, err
		}
		return uint64(value), nil
	}
	offset := d.offset()
	n, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return 0, err
	}
	if !s.contains(n) {
		return 0, violation("DecodeLengthDeterminant", offset, "length %d outside %s", n, s)
	}
	return n, nil
}

// DecodeUnconstrainedLength decodes an unconstrained length determinant.
// Fragmented lengths (leading bits 11) are rejected.
func (d *Decoder) DecodeUnconstrainedLength() (uint64, error) {
	offset := d.offset()
	first, err := d.read("DecodeUnconstrainedLength", 8)
	if err != nil {
		return 0, err
	}
	// 11.9.3.6: If most significant bit is 0, length is in range 0-127
	if first&0x80 == 0 {
		return first, nil
	}
	// 11.9.3.7: If most significant 2 bits are 10, length is in range 128-16383
	if first&0xC0 == 0x80 {
		second, err := d.read("DecodeUnconstrainedLength", 8)
		if err != nil {
			return 0, err
		}
		return ((first & 0x3F) << 8) | second, nil
	}
	return 0, violation("DecodeUnconstrainedLength", offset, "fragmented length not supported")
}

// DecodeNormallySmallLength decodes a normally small length determinant (n >= 1).
func (d *Decoder) DecodeNormallySmallLength() (uint64, error) {
	bit, err := d.read("DecodeNormallySmallLength", 1)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		value, err := d.read("DecodeNormallySmallLength", 6)
		if err != nil {
			return 0, err
		}
		return value + 1, nil
	}
	return d.DecodeUnconstrainedLength()
}

// DecodeBoolean decodes a boolean value encoded as a single bit.
func (d *Decoder) DecodeBoolean() (bool, error) {
	bit, err := d.read("DecodeBoolean", 1)
	if err != nil {
		return false, err
	}
	return bit != 0, nil
}

// DecodeExtensionBit reads the extension marker bit of an extensible type.
func (d *Decoder) DecodeExtensionBit() (bool, error) {
	bit, err := d.read("DecodeExtensionBit", 1)
	if err != nil {
		return false, err
	}
	return bit != 0, nil
}

// DecodeBitmap reads n presence bits.
func (d *Decoder) DecodeBitmap(n int) ([]bool, error) {
	flags := make([]bool, n)
	for i := range flags {
		flag, err := d.DecodeBoolean()
		if err != nil {
			return nil, err
		}
		flags[i] = flag
	}
	return flags, nil
}

// DecodeInteger decodes an integer value under c and validates it against the
// root range. Extended values of an extensible constraint are returned as sent.
func (d *Decoder) DecodeInteger(c Constraint) (int64, error) {
	if c.Extensible {
		extended, err := d.DecodeExtensionBit()
		if err != nil {
			return 0, err
		}
		if extended {
			return d.DecodeUnconstrainedWholeNumber()
		}
	}
	offset := d.offset()
	var (
		value int64
		err   error
	)
	switch {
	case c.IsConstrained():
		return d.decodeConstrained(c.bits, *c.Lb, *c.Ub)
	case c.Lb != nil:
		value, err = d.DecodeSemiConstrainedWholeNumber(*c.Lb)
	default:
		value, err = d.DecodeUnconstrainedWholeNumber()
	}
	if err != nil {
		return 0, err
	}
	if !c.Contains(value) {
		return 0, violation("DecodeInteger", offset, "%d outside %s", value, c)
	}
	return value, nil
}

// DecodeEnumerated decodes an enumeration index. An extension index beyond the
// ones known to n is returned together with an error matching ErrUnknownExtension;
// the stream is positioned after the value, so decoding may continue.
func (d *Decoder) DecodeEnumerated(n Enumeration) (uint64, error) {
	return d.decodeIndex("DecodeEnumerated", n, ErrConstraintViolation)
}

// DecodeChoiceIndex decodes the index of a CHOICE alternative. A root index with
// no alternative fails with ErrInvalidChoiceIndex. An unknown extension index is
// returned with ErrUnknownExtension; its value is an open type the caller skips.
func (d *Decoder) DecodeChoiceIndex(n Enumeration) (uint64, error) {
	return d.decodeIndex("DecodeChoiceIndex", n, ErrInvalidChoiceIndex)
}

func (d *Decoder) decodeIndex(op string, n Enumeration, invalid error) (uint64, error) {
	if n.Extensible {
		extended, err := d.DecodeExtensionBit()
		if err != nil {
			return 0, err
		}
		if extended {
			offset := d.offset()
			index, err := d.DecodeNormallySmallNonNegativeWholeNumber()
			if err != nil {
				return 0, err
			}
			if index > math.MaxUint64-n.Root {
				return 0, violation(op, offset, "extension index %d overflows the index domain", index)
			}
			if index >= n.Extension {
				return n.Root + index, &Error{Kind: ErrUnknownExtension, Op: op, Offset: offset}
			}
			return n.Root + index, nil
		}
	}
	if n.Root == 0 {
		return 0, &Error{Kind: invalid, Op: op, Offset: d.offset()}
	}
	width := n.rootBits()
	if width == 0 {
		return 0, nil
	}
	offset := d.offset()
	value, err := d.read(op, width)
	if err != nil {
		return 0, err
	}
	if value >= n.Root {
		return 0, &Error{Kind: invalid, Op: op, Offset: offset}
	}
	return value, nil
}

// decodeSize reads the extension bit and length determinant of a size
// constrained type. Fixed sizes below 64K have no determinant.
func (d *Decoder) decodeSize(size SizeConstraint) (uint64, error) {
	if size.extensible {
		extended, err := d.DecodeExtensionBit()
		if err != nil {
			return 0, err
		}
		if extended {
			return d.decodeLength(SizeConstraint{})
		}
	}
	if size.fixed() {
		return *size.ub, nil
	}
	return d.decodeLength(size)
}

// DecodeBitString decodes a bit string under size. Pad bits of the final
// byte are returned as zero.
func (d *Decoder) DecodeBitString(size SizeConstraint) (asn1.BitString, error) {
	n, err := d.decodeSize(size)
	if err != nil {
		return asn1.BitString{}, err
	}
	offset := d.offset()
	data, err := d.codec.ReadBits(n)
	if err != nil {
		return asn1.BitString{}, wrap(ErrBufferOverrun, "DecodeBitString", offset, err)
	}
	return asn1.BitString{Bytes: data, BitLength: int(n)}, nil
}

// DecodeOctetString decodes an octet string under size.
func (d *Decoder) DecodeOctetString(size SizeConstraint) ([]byte, error) {
	n, err := d.decodeSize(size)
	if err != nil {
		return nil, err
	}
	offset := d.offset()
	data, err := d.codec.ReadBytes(int(n))
	if err != nil {
		return nil, wrap(ErrBufferOverrun, "DecodeOctetString", offset, err)
	}
	return data, nil
}

// DecodeNull decodes nothing.
func (d *Decoder) DecodeNull() error {
	return nil
}

// DecodeSequenceOfLength reads the element count of a SEQUENCE OF under size.
func (d *Decoder) DecodeSequenceOfLength(size SizeConstraint) (uint64, error) {
	return d.decodeSize(size)
}

// DecodeOpenType reads an open type and decodes its contents with fn on a nested
// decoder limited to the contents octets. Contents that need more octets than
// announced, or fewer than announced, fail with ErrIncompleteExtensionGroup.
func (d *Decoder) DecodeOpenType(fn func(*Decoder) error) error {
	data, base, err := d.readOpenType()
	if err != nil {
		return err
	}
	inner := d.nested(data, base)
	if err := fn(inner); err != nil {
		if KindOf(err) == "BufferOverrun" {
			return &Error{Kind: ErrIncompleteExtensionGroup, Op: "DecodeOpenType", Offset: base, Err: err}
		}
		return err
	}
	used := max(1, (inner.NumRead()+7)/8)
	if used != uint64(len(data)) {
		return &Error{
			Kind:   ErrIncompleteExtensionGroup,
			Op:     "DecodeOpenType",
			Offset: base,
			Err:    fmt.Errorf("length %d, contents used %d octets", len(data), used),
		}
	}
	return nil
}

// SkipOpenType discards an open type without interpreting it and returns its
// contents octets.
func (d *Decoder) SkipOpenType() ([]byte, error) {
	data, _, err := d.readOpenType()
	return data, err
}

func (d *Decoder) readOpenType() ([]byte, uint64, error) {
	n, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return nil, 0, err
	}
	base := d.offset()
	data, err := d.codec.ReadBytes(int(n))
	if err != nil {
		return nil, 0, wrap(ErrBufferOverrun, "DecodeOpenType", base, err)
	}
	return data, base, nil
}
