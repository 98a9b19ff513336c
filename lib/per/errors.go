package per

import (
	"errors"
	"fmt"

	"github.com/thebagchi/rrc-uper/lib/bitbuffer"
)

var (
	// ErrConstraintViolation reports a value outside its declared numeric or size range.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrBufferOverrun reports truncated input: the reader ran out of bits.
	ErrBufferOverrun = bitbuffer.ErrOverrun
	// ErrInvalidChoiceIndex reports a root CHOICE index with no known alternative.
	ErrInvalidChoiceIndex = errors.New("invalid choice index")
	// ErrUnknownExtension reports an enumeration or choice extension index beyond the
	// compiled schema. The stream position remains valid, so callers may keep going.
	ErrUnknownExtension = errors.New("unknown extension")
	// ErrIncompleteExtensionGroup reports an open type whose length determinant does
	// not match the number of octets its contents consumed.
	ErrIncompleteExtensionGroup = errors.New("incomplete extension group")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrConstraintViolation, "ConstraintViolation"},
	{ErrBufferOverrun, "BufferOverrun"},
	{ErrInvalidChoiceIndex, "InvalidChoiceIndex"},
	{ErrUnknownExtension, "UnknownExtension"},
	{ErrIncompleteExtensionGroup, "IncompleteExtensionGroup"},
}

// Error is a codec failure annotated with the operation and the bit offset at
// which it happened.
type Error struct {
	Kind   error
	Op     string
	Offset uint64
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("per: %s at bit %d: %v", e.Op, e.Offset, e.Kind)
	if e.Err != nil && e.Err != e.Kind {
		msg = fmt.Sprintf("per: %s at bit %d: %v", e.Op, e.Offset, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil || e.Err == e.Kind {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ByteOffset returns the byte containing the failing bit.
func (e *Error) ByteOffset() uint64 {
	return e.Offset / 8
}

// KindOf returns the name of the error kind carried by err, or "Unknown". The
// outermost *Error decides, so an overrun inside an open type reports the
// enclosing IncompleteExtensionGroup.
func KindOf(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		for _, k := range kinds {
			if perr.Kind == k.err {
				return k.name
			}
		}
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}

// OffsetOf returns the bit offset of the innermost *Error in err's chain.
func OffsetOf(err error) (uint64, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Offset, true
	}
	return 0, false
}

func violation(op string, offset uint64, format string, args ...any) error {
	return &Error{
		Kind:   ErrConstraintViolation,
		Op:     op,
		Offset: offset,
		Err:    fmt.Errorf("%w: "+format, append([]any{ErrConstraintViolation}, args...)...),
	}
}

func wrap(kind error, op string, offset uint64, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	if errors.Is(err, bitbuffer.ErrOverrun) {
		kind = ErrBufferOverrun
	}
	return &Error{Kind: kind, Op: op, Offset: offset, Err: err}
}
