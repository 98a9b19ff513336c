package per

import (
	"encoding/asn1"
	"math/bits"

	"github.com/thebagchi/rrc-uper/lib/bitbuffer"
)

// Encoder represents an unaligned PER encoder for bit-level encoding
type Encoder struct {
	codec *bitbuffer.Writer
}

// NewEncoder creates a new UPER encoder
func NewEncoder() *Encoder {
	return &Encoder{
		codec: bitbuffer.NewWriter(),
	}
}

// Bytes returns the encoded bytes. The final partial byte, if any, is zero padded,
// which is the byte alignment required at PDU boundaries.
func (e *Encoder) Bytes() []byte {
	return e.codec.Bytes()
}

// NumWritten returns the number of bits written so far.
func (e *Encoder) NumWritten() uint64 {
	return e.codec.NumWritten()
}

// Align pads the output with zero bits up to the next octet boundary.
func (e *Encoder) Align() error {
	return e.codec.Align()
}

func (e *Encoder) write(op string, num uint8, value uint64) error {
	offset := e.codec.NumWritten()
	return wrap(ErrConstraintViolation, op, offset, e.codec.Write(num, value))
}

// 11.3 Encoding as a non-negative-binary-integer

// BitsNonNegativeBinaryInteger returns the minimum number of bits holding value.
func BitsNonNegativeBinaryInteger(value uint64) int {
	if value == 0 {
		return 1
	}
	return bits.Len64(value)
}

// OctetsNonNegativeBinaryIntegerLength returns the minimum number of octets holding value.
func OctetsNonNegativeBinaryIntegerLength(value uint64) int {
	bits := BitsNonNegativeBinaryInteger(value)
	return (bits + 7) >> 3
}

// 11.4 Encoding as a 2's-complement-binary-integer

// BitsTwosComplementBinaryInteger returns the minimum number of bits holding value
// in two's complement.
func BitsTwosComplementBinaryInteger(value int64) int {
	if value == 0 {
		return 1
	}
	if value > 0 {
		return bits.Len64(uint64(value)) + 1
	}
	// 11.4.6: leading nine bits shall not all be ones
	return bits.Len64(uint64(^value)) + 1
}

// OctetsTwosComplementBinaryInteger returns the minimum number of octets holding
// value in two's complement.
func OctetsTwosComplementBinaryInteger(value int64) int {
	bits := BitsTwosComplementBinaryInteger(value)
	return (bits + 7) >> 3
}

// 11.5 Encoding of a constrained whole number

// EncodeConstrainedWholeNumber encodes n-lb in exactly RangeBits(lb, ub) bits.
func (e *Encoder) EncodeConstrainedWholeNumber(lb, ub, n int64) error {
	if n < lb || n > ub {
		return violation("EncodeConstrainedWholeNumber", e.NumWritten(), "%d outside [%d, %d]", n, lb, ub)
	}
	return e.encodeConstrained(RangeBits(lb, ub), lb, n)
}

func (e *Encoder) encodeConstrained(width uint8, lb, n int64) error {
	if width == 0 {
		return nil
	}
	return e.write("EncodeConstrainedWholeNumber", width, uint64(n)-uint64(lb))
}

// 11.6 Encoding of a normally small non-negative whole number

// EncodeNormallySmallNonNegativeWholeNumber encodes n as 0 + 6 bits when n <= 63,
// otherwise as 1 + a semi-constrained whole number with lb=0.
func (e *Encoder) EncodeNormallySmallNonNegativeWholeNumber(n uint64) error {
	if n <= 63 {
		if err := e.write("EncodeNormallySmallNonNegativeWholeNumber", 1, 0); err != nil {
			return err
		}
		return e.write("EncodeNormallySmallNonNegativeWholeNumber", 6, n)
	}
	if err := e.write("EncodeNormallySmallNonNegativeWholeNumber", 1, 1); err != nil {
		return err
	}
	return e.encodeSemiConstrained(n)
}

// 11.7 Encoding of a semi-constrained whole number

// EncodeSemiConstrainedWholeNumber encodes n-lb in the minimum number of octets,
// preceded by an unconstrained length determinant.
func (e *Encoder) EncodeSemiConstrainedWholeNumber(lb, n int64) error {
	if n < lb {
		return violation("EncodeSemiConstrainedWholeNumber", e.NumWritten(), "%d below lower bound %d", n, lb)
	}
	return e.encodeSemiConstrained(uint64(n) - uint64(lb))
}

func (e *Encoder) encodeSemiConstrained(value uint64) error {
	octets := OctetsNonNegativeBinaryIntegerLength(value)
	if err := e.EncodeUnconstrainedLength(uint64(octets)); err != nil {
		return err
	}
	return e.write("EncodeSemiConstrainedWholeNumber", uint8(octets*8), value)
}

// 11.8 Encoding of an unconstrained whole number

// EncodeUnconstrainedWholeNumber encodes n as a two's-complement integer in the
// minimum number of octets, preceded by an unconstrained length determinant.
func (e *Encoder) EncodeUnconstrainedWholeNumber(n int64) error {
	octets := OctetsTwosComplementBinaryInteger(n)
	if err := e.EncodeUnconstrainedLength(uint64(octets)); err != nil {
		return err
	}
	return e.write("EncodeUnconstrainedWholeNumber", uint8(octets*8), uint64(n))
}

// 11.9 General rules for encoding a length determinant

// EncodeLengthDeterminant encodes n against SIZE(lb..ub). A missing lb means 0.
// When ub is known and below 64K the length is a constrained whole number,
// otherwise it uses the unconstrained form.
func (e *Encoder) EncodeLengthDeterminant(n uint64, lb *uint64, ub *uint64) error {
	s, err := NewSizeConstraint(lb, ub, false)
	if err != nil {
		return violation("EncodeLengthDeterminant", e.NumWritten(), "%v", err)
	}
	return e.encodeLength(n, s)
}

func (e *Encoder) encodeLength(n uint64, s SizeConstraint) error {
	if !s.contains(n) {
		return violation("EncodeLengthDeterminant", e.NumWritten(), "length %d outside %s", n, s)
	}
	if s.constrained() {
		return e.encodeConstrained(s.bits, int64(s.lower()), int64(n))
	}
	return e.EncodeUnconstrainedLength(n)
}

// EncodeUnconstrainedLength encodes n in one octet (n < 128) or two octets
// (n < 16K). Larger lengths need fragmentation, which is not supported.
func (e *Encoder) EncodeUnconstrainedLength(n uint64) error {
	if n <= 127 {
		return e.write("EncodeUnconstrainedLength", 8, n)
	}
	if n < FRAGMENT_SIZE {
		return e.write("EncodeUnconstrainedLength", 16, (1<<15)|n)
	}
	return violation("EncodeUnconstrainedLength", e.NumWritten(), "length %d requires fragmentation", n)
}

// EncodeNormallySmallLength encodes n (n >= 1) as 0 + 6 bits of n-1 when n <= 64,
// otherwise as 1 + an unconstrained length.
func (e *Encoder) EncodeNormallySmallLength(n uint64) error {
	if n == 0 {
		return violation("EncodeNormallySmallLength", e.NumWritten(), "length must be positive")
	}
	if n <= 64 {
		if err := e.write("EncodeNormallySmallLength", 1, 0); err != nil {
			return err
		}
		return e.write("EncodeNormallySmallLength", 6, n-1)
	}
	if err := e.write("EncodeNormallySmallLength", 1, 1); err != nil {
		return err
	}
	return e.EncodeUnconstrainedLength(n)
}

// 12 Encoding the boolean type

// EncodeBoolean encodes value as a single bit.
func (e *Encoder) EncodeBoolean(value bool) error {
	if value {
		return e.write("EncodeBoolean", 1, 1)
	}
	return e.write("EncodeBoolean", 1, 0)
}

// EncodeExtensionBit writes the extension marker bit of an extensible type.
func (e *Encoder) EncodeExtensionBit(extended bool) error {
	if extended {
		return e.write("EncodeExtensionBit", 1, 1)
	}
	return e.write("EncodeExtensionBit", 1, 0)
}

// EncodeBitmap writes one bit per flag, in order. Used for OPTIONAL/DEFAULT
// presence and extension addition bitmaps.
func (e *Encoder) EncodeBitmap(flags []bool) error {
	for _, flag := range flags {
		if err := e.EncodeBoolean(flag); err != nil {
			return err
		}
	}
	return nil
}

// 13 Encoding the integer type

// EncodeInteger encodes value under c. Values outside an extensible constraint's
// root are sent in the unconstrained form behind an extension bit.
func (e *Encoder) EncodeInteger(value int64, c Constraint) error {
	if c.Extensible {
		extended := !c.Contains(value)
		if err := e.EncodeExtensionBit(extended); err != nil {
			return err
		}
		if extended {
			return e.EncodeUnconstrainedWholeNumber(value)
		}
	}
	if !c.Contains(value) {
		return violation("EncodeInteger", e.NumWritten(), "%d outside %s", value, c)
	}
	switch {
	case c.IsConstrained():
		return e.encodeConstrained(c.bits, *c.Lb, value)
	case c.Lb != nil:
		return e.encodeSemiConstrained(uint64(value) - uint64(*c.Lb))
	default:
		return e.EncodeUnconstrainedWholeNumber(value)
	}
}

// 14 Encoding the enumerated type

// EncodeEnumerated encodes the enumeration index value. Extension values
// (value >= Root) are encoded as a normally small number behind the extension bit.
func (e *Encoder) EncodeEnumerated(value uint64, n Enumeration) error {
	return e.encodeIndex("EncodeEnumerated", value, n)
}

func (e *Encoder) encodeIndex(op string, value uint64, n Enumeration) error {
	if value >= n.Count() || (!n.Extensible && value >= n.Root) {
		return violation(op, e.NumWritten(), "index %d outside %d root + %d extension values", value, n.Root, n.Extension)
	}
	if n.Extensible {
		extended := n.IsExtension(value)
		if err := e.EncodeExtensionBit(extended); err != nil {
			return err
		}
		if extended {
			return e.EncodeNormallySmallNonNegativeWholeNumber(value - n.Root)
		}
	}
	return e.encodeConstrained(n.rootBits(), 0, int64(value))
}

// 16 Encoding the bitstring type

// EncodeBitString encodes value under size. Fixed sizes below 64K carry no
// length determinant.
func (e *Encoder) EncodeBitString(value *asn1.BitString, size SizeConstraint) error {
	n := uint64(value.BitLength)
	if uint64(len(value.Bytes))*8 < n {
		return violation("EncodeBitString", e.NumWritten(), "bit length %d exceeds %d data bytes", n, len(value.Bytes))
	}
	if err := e.encodeSize("EncodeBitString", n, size); err != nil {
		return err
	}
	return wrap(ErrConstraintViolation, "EncodeBitString", e.NumWritten(), e.codec.WriteBits(value.Bytes, n))
}

// encodeSize writes the extension bit and length determinant of a size
// constrained type. Fixed sizes below 64K write no determinant.
func (e *Encoder) encodeSize(op string, n uint64, size SizeConstraint) error {
	inRoot := size.contains(n)
	if size.extensible {
		if err := e.EncodeExtensionBit(!inRoot); err != nil {
			return err
		}
		if !inRoot {
			return e.encodeLength(n, SizeConstraint{})
		}
	}
	if !inRoot {
		return violation(op, e.NumWritten(), "size %d outside %s", n, size)
	}
	if size.fixed() {
		return nil
	}
	return e.encodeLength(n, size)
}

// 17 Encoding the octetstring type

// EncodeOctetString encodes value under size.
func (e *Encoder) EncodeOctetString(value []byte, size SizeConstraint) error {
	if err := e.encodeSize("EncodeOctetString", uint64(len(value)), size); err != nil {
		return err
	}
	return wrap(ErrConstraintViolation, "EncodeOctetString", e.NumWritten(), e.codec.WriteBytes(value))
}

// 18 Encoding the null type

// EncodeNull encodes nothing.
func (e *Encoder) EncodeNull() error {
	return nil
}

// 20 Encoding the sequence-of type

// EncodeSequenceOfLength writes the element count of a SEQUENCE OF under
// SIZE(lb..ub). Fixed sizes below 64K carry no count.
func (e *Encoder) EncodeSequenceOfLength(n uint64, size SizeConstraint) error {
	return e.encodeSize("EncodeSequenceOfLength", n, size)
}

// 23 Encoding the choice type

// EncodeChoiceIndex encodes the index of the chosen alternative. Extension
// alternatives are sent as a normally small number; the caller must wrap their
// value with EncodeOpenType.
func (e *Encoder) EncodeChoiceIndex(index uint64, n Enumeration) error {
	return e.encodeIndex("EncodeChoiceIndex", index, n)
}

// 11.2 Open type fields

// EncodeOpenType encodes the value written by fn into a scratch encoder, pads it to
// whole octets (at least one) and emits it behind an unconstrained length.
func (e *Encoder) EncodeOpenType(fn func(*Encoder) error) error {
	inner := NewEncoder()
	if err := fn(inner); err != nil {
		return err
	}
	return e.EncodeOpenTypeBytes(inner.Bytes())
}

// EncodeOpenTypeBytes emits already encoded open type contents behind an
// unconstrained length, for relaying values this build cannot interpret.
func (e *Encoder) EncodeOpenTypeBytes(data []byte) error {
	if len(data) == 0 {
		data = []byte{0x00}
	}
	if err := e.EncodeUnconstrainedLength(uint64(len(data))); err != nil {
		return err
	}
	return wrap(ErrConstraintViolation, "EncodeOpenType", e.NumWritten(), e.codec.WriteBytes(data))
}
