package per

import (
	"fmt"
)

// 19.7 - 19.9 Extension additions of SEQUENCE types
//
// An extensible SEQUENCE carries one extension bit before its root fields. When the
// bit is set, the root fields are followed by a normally small length giving the
// number of extension additions the encoder knows about, one presence bit per
// addition, and an open type for every present addition. Each addition here is an
// extension group ([[ ... ]]) or a single added component.

// ExtensionGroupEncoder writes the extension additions of one SEQUENCE value.
// Presence is collected with SetGroup before anything is written, so the extension
// bit at the start of the SEQUENCE and the bitmap after its root agree.
type ExtensionGroupEncoder struct {
	present []bool
	next    int
	begun   bool
	e       *Encoder
}

// NewExtensionGroupEncoder creates an encoder for n extension additions.
func NewExtensionGroupEncoder(n int) *ExtensionGroupEncoder {
	return &ExtensionGroupEncoder{present: make([]bool, n)}
}

// SetGroup marks group i as present or absent. Presence cannot change once
// Begin has written the bitmap.
func (g *ExtensionGroupEncoder) SetGroup(i int, present bool) error {
	if i < 0 || i >= len(g.present) {
		return fmt.Errorf("per: extension group %d outside %d groups", i, len(g.present))
	}
	if g.begun {
		return fmt.Errorf("per: extension group %d set after Begin", i)
	}
	g.present[i] = present
	return nil
}

// Present reports whether any group is present; this is the SEQUENCE's extension bit.
func (g *ExtensionGroupEncoder) Present() bool {
	for _, present := range g.present {
		if present {
			return true
		}
	}
	return false
}

// Len returns the number of groups this encoder was built with.
func (g *ExtensionGroupEncoder) Len() int {
	return len(g.present)
}

// Begin writes the addition count and presence bitmap. It writes nothing when no
// group is present.
func (g *ExtensionGroupEncoder) Begin(e *Encoder) error {
	g.e = e
	g.begun = true
	if !g.Present() {
		return nil
	}
	if err := e.EncodeNormallySmallLength(uint64(len(g.present))); err != nil {
		return err
	}
	return e.EncodeBitmap(g.present)
}

// OpenGroup writes group i as an open type whose contents are produced by fn.
// Groups must be opened in increasing order and only when marked present.
func (g *ExtensionGroupEncoder) OpenGroup(i int, fn func(*Encoder) error) error {
	if !g.begun {
		return fmt.Errorf("per: extension group %d opened before Begin", i)
	}
	if i < g.next || i >= len(g.present) {
		return fmt.Errorf("per: extension group %d out of order", i)
	}
	if !g.present[i] {
		return fmt.Errorf("per: extension group %d is not marked present", i)
	}
	for j := g.next; j < i; j++ {
		if g.present[j] {
			return fmt.Errorf("per: extension group %d skipped", j)
		}
	}
	g.next = i + 1
	return g.e.EncodeOpenType(fn)
}

// End checks that every present group was written.
func (g *ExtensionGroupEncoder) End() error {
	for j := g.next; j < len(g.present); j++ {
		if g.present[j] {
			return fmt.Errorf("per: extension group %d not written", j)
		}
	}
	return nil
}

// ExtensionGroupDecoder reads the extension additions of one SEQUENCE value. The
// encoder may know fewer, as many, or more additions than the decoder supports;
// additions beyond the supported count are skipped using their length.
type ExtensionGroupDecoder struct {
	supported int
	present   []bool
	next      int
	d         *Decoder
}

// NewExtensionGroupDecoder creates a decoder that understands the first supported
// extension additions.
func NewExtensionGroupDecoder(supported int) *ExtensionGroupDecoder {
	return &ExtensionGroupDecoder{supported: supported}
}

// Begin reads the addition count and presence bitmap. Call it only when the
// SEQUENCE's extension bit was set.
func (g *ExtensionGroupDecoder) Begin(d *Decoder) error {
	g.d = d
	offset := d.offset()
	n, err := d.DecodeNormallySmallLength()
	if err != nil {
		return err
	}
	if n > d.maxExtensionAdditions {
		return violation("ExtensionGroupDecoder.Begin", offset, "%d extension additions exceed limit %d", n, d.maxExtensionAdditions)
	}
	g.present, err = d.DecodeBitmap(int(n))
	return err
}

// Received returns the number of additions the encoder announced.
func (g *ExtensionGroupDecoder) Received() int {
	return len(g.present)
}

// GroupPresent reports whether group i was sent. Groups the encoder did not know
// about are absent.
func (g *ExtensionGroupDecoder) GroupPresent(i int) bool {
	return i < len(g.present) && g.present[i]
}

// OpenGroup decodes group i with fn. Present groups before i that were not opened
// are skipped. Groups must be opened in increasing order.
func (g *ExtensionGroupDecoder) OpenGroup(i int, fn func(*Decoder) error) error {
	if g.d == nil {
		return fmt.Errorf("per: extension group %d opened before Begin", i)
	}
	if i < g.next || i >= g.supported {
		return fmt.Errorf("per: extension group %d out of order", i)
	}
	if !g.GroupPresent(i) {
		return fmt.Errorf("per: extension group %d is not present", i)
	}
	if err := g.skip(i); err != nil {
		return err
	}
	g.next = i + 1
	return g.d.DecodeOpenType(fn)
}

// End skips every remaining present group, including those beyond the supported
// count, leaving the decoder after the last addition.
func (g *ExtensionGroupDecoder) End() error {
	if g.d == nil {
		return nil
	}
	err := g.skip(len(g.present))
	g.next = len(g.present)
	return err
}

func (g *ExtensionGroupDecoder) skip(until int) error {
	for j := g.next; j < until && j < len(g.present); j++ {
		if !g.present[j] {
			continue
		}
		if _, err := g.d.SkipOpenType(); err != nil {
			return err
		}
	}
	return nil
}
