package per

import (
	"fmt"
	"math/bits"
)

// Constraint is a precomputed INTEGER constraint. The bit width of the fully
// constrained form is fixed when the constraint is built, never per value.
type Constraint struct {
	Lb         *int64
	Ub         *int64
	Extensible bool
	bits       uint8
}

// NewConstraint builds a constraint from optional bounds. An upper bound without a
// lower bound encodes like an unconstrained integer but is still validated.
func NewConstraint(lb, ub *int64, extensible bool) (Constraint, error) {
	c := Constraint{Lb: lb, Ub: ub, Extensible: extensible}
	if lb != nil && ub != nil {
		if *lb > *ub {
			return Constraint{}, fmt.Errorf("per: invalid range [%d, %d]", *lb, *ub)
		}
		c.bits = RangeBits(*lb, *ub)
	}
	return c, nil
}

// Constrained returns the constraint INTEGER (lb..ub) for package level schema
// declarations. It panics if lb > ub; schemas built at runtime should use
// NewConstraint and handle its error.
func Constrained(lb, ub int64) Constraint {
	c, err := NewConstraint(&lb, &ub, false)
	if err != nil {
		panic(err)
	}
	return c
}

// SemiConstrained returns the constraint INTEGER (lb..MAX).
func SemiConstrained(lb int64) Constraint {
	return Constraint{Lb: &lb}
}

// Unconstrained returns the constraint of a plain INTEGER.
func Unconstrained() Constraint {
	return Constraint{}
}

// Extend returns a copy of c with the extension marker set: INTEGER (lb..ub, ...).
func (c Constraint) Extend() Constraint {
	c.Extensible = true
	return c
}

// Bits returns the width of the fully constrained encoding, 0 for other forms.
func (c Constraint) Bits() uint8 {
	return c.bits
}

// IsConstrained reports whether both bounds are present.
func (c Constraint) IsConstrained() bool {
	return c.Lb != nil && c.Ub != nil
}

// Contains reports whether value satisfies the root range.
func (c Constraint) Contains(value int64) bool {
	if c.Lb != nil && value < *c.Lb {
		return false
	}
	if c.Ub != nil && value > *c.Ub {
		return false
	}
	return true
}

func (c Constraint) String() string {
	lb, ub := "MIN", "MAX"
	if c.Lb != nil {
		lb = fmt.Sprint(*c.Lb)
	}
	if c.Ub != nil {
		ub = fmt.Sprint(*c.Ub)
	}
	if c.Extensible {
		return fmt.Sprintf("(%s..%s, ...)", lb, ub)
	}
	return fmt.Sprintf("(%s..%s)", lb, ub)
}

// RangeBits returns ceil(log2(ub-lb+1)), the number of bits of a constrained whole
// number over [lb, ub]. The difference is taken in uint64 so ranges spanning the
// whole int64 domain do not overflow.
func RangeBits(lb, ub int64) uint8 {
	return uint8(bits.Len64(uint64(ub) - uint64(lb)))
}

// Enumeration describes the index domain of an ENUMERATED or CHOICE type: Root
// values 0..Root-1, then Extension values Root..Root+Extension-1 known to this
// build. Extension values are only legal when Extensible is set.
//
// NewEnumeration fixes the root index width once; a literal Enumeration works
// too but derives the width on every use.
type Enumeration struct {
	Root       uint64
	Extension  uint64
	Extensible bool
	bits       uint8
	sized      bool
}

// NewEnumeration returns an index domain with its root index width precomputed.
func NewEnumeration(root, extension uint64, extensible bool) Enumeration {
	n := Enumeration{Root: root, Extension: extension, Extensible: extensible}
	n.bits = n.rootBits()
	n.sized = true
	return n
}

// rootBits is the width of a root index: ceil(log2(Root)).
func (n Enumeration) rootBits() uint8 {
	if n.sized {
		return n.bits
	}
	if n.Root == 0 {
		return 0
	}
	return RangeBits(0, int64(n.Root)-1)
}

// Count returns the number of values known to this build.
func (n Enumeration) Count() uint64 {
	return n.Root + n.Extension
}

// IsExtension reports whether index lies in the extension part of the domain.
func (n Enumeration) IsExtension(index uint64) bool {
	return index >= n.Root
}

// SizeConstraint is a precomputed SIZE(lb..ub) constraint of a string or
// SEQUENCE OF type. The zero value is an unconstrained size. The width of a
// constrained length is fixed when the constraint is built.
type SizeConstraint struct {
	lb, ub     *uint64
	extensible bool
	bits       uint8
}

// NewSizeConstraint builds a size constraint from optional bounds. A missing lb
// means 0.
func NewSizeConstraint(lb, ub *uint64, extensible bool) (SizeConstraint, error) {
	s := SizeConstraint{lb: lb, ub: ub, extensible: extensible}
	if ub != nil && s.lower() > *ub {
		return SizeConstraint{}, fmt.Errorf("per: invalid size range [%d, %d]", s.lower(), *ub)
	}
	if s.constrained() {
		s.bits = RangeBits(int64(s.lower()), int64(*ub))
	}
	return s, nil
}

// Sized returns SIZE(lb..ub) for package level schema declarations. It panics if
// lb > ub; use NewSizeConstraint for schemas built at runtime.
func Sized(lb, ub uint64, extensible bool) SizeConstraint {
	s, err := NewSizeConstraint(&lb, &ub, extensible)
	if err != nil {
		panic(err)
	}
	return s
}

// Lb returns the lower bound, nil when absent.
func (s SizeConstraint) Lb() *uint64 { return s.lb }

// Ub returns the upper bound, nil when absent.
func (s SizeConstraint) Ub() *uint64 { return s.ub }

// Extensible reports whether the constraint has an extension marker.
func (s SizeConstraint) Extensible() bool { return s.extensible }

// Bits returns the width of a constrained length, 0 for the unconstrained form.
func (s SizeConstraint) Bits() uint8 { return s.bits }

func (s SizeConstraint) lower() uint64 {
	if s.lb == nil {
		return 0
	}
	return *s.lb
}

// constrained reports whether lengths are sent as a constrained whole number.
func (s SizeConstraint) constrained() bool {
	return s.ub != nil && *s.ub < MAX_CONSTRAINED_LENGTH
}

// fixed reports whether the size is a single value below 64K, sent without a
// length determinant.
func (s SizeConstraint) fixed() bool {
	return s.lb != nil && s.ub != nil && *s.lb == *s.ub && *s.ub < MAX_CONSTRAINED_LENGTH
}

func (s SizeConstraint) contains(n uint64) bool {
	return n >= s.lower() && (s.ub == nil || n <= *s.ub)
}

func (s SizeConstraint) String() string {
	ub := "MAX"
	if s.ub != nil {
		ub = fmt.Sprint(*s.ub)
	}
	if s.extensible {
		return fmt.Sprintf("SIZE(%d..%s, ...)", s.lower(), ub)
	}
	return fmt.Sprintf("SIZE(%d..%s)", s.lower(), ub)
}

// Size returns pointers suitable for size constraints (SIZE(lb..ub)).
func Size(lb, ub uint64) (*uint64, *uint64) {
	return &lb, &ub
}

// Ptr returns a pointer to v. Handy for optional bounds.
func Ptr[T any](v T) *T {
	return &v
}
