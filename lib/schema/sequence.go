package schema

import (
	"fmt"
	"reflect"

	"github.com/thebagchi/rrc-uper/lib/per"
)

// Field is one component of a Sequence.
type Field struct {
	Name     string
	Type     Type
	Optional bool
	// Default, when non-nil, makes the component DEFAULT: it is omitted from the
	// encoding when equal to Default and filled in when absent on decode.
	Default any
}

func (f Field) inBitmap() bool {
	return f.Optional || f.Default != nil
}

// Group is one extension addition: an extension group [[ ... ]] or a single
// component added after the extension marker.
type Group []Field

func (g Group) present(rec Record) bool {
	for _, f := range g {
		if _, ok := rec[f.Name]; ok {
			return true
		}
	}
	return false
}

// Sequence is a SEQUENCE type. Groups are its extension additions in release
// order; they require Extensible.
type Sequence struct {
	Name       string
	Fields     []Field
	Extensible bool
	Groups     []Group
}

func (s *Sequence) Encode(e *per.Encoder, v any) error {
	rec, ok := v.(Record)
	if !ok {
		return fmt.Errorf("%s: %w", s.Name, typeError("SEQUENCE", v))
	}
	groups := per.NewExtensionGroupEncoder(len(s.Groups))
	for i, g := range s.Groups {
		if err := groups.SetGroup(i, g.present(rec)); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	if s.Extensible {
		if err := e.EncodeExtensionBit(groups.Present()); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	} else if groups.Present() {
		return fmt.Errorf("%s: %w: extension additions on a non-extensible type", s.Name, per.ErrConstraintViolation)
	}
	if err := encodeFields(e, s.Name, s.Fields, rec); err != nil {
		return err
	}
	if !groups.Present() {
		return nil
	}
	if err := groups.Begin(e); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	for i, g := range s.Groups {
		if !g.present(rec) {
			continue
		}
		err := groups.OpenGroup(i, func(inner *per.Encoder) error {
			return encodeFields(inner, s.Name, g, rec)
		})
		if err != nil {
			return err
		}
	}
	return groups.End()
}

// encodeFields writes the presence bitmap of fields followed by the present
// components, in declaration order.
func encodeFields(e *per.Encoder, name string, fields []Field, rec Record) error {
	var bitmap []bool
	for _, f := range fields {
		if !f.inBitmap() {
			continue
		}
		value, ok := rec[f.Name]
		if ok && f.Default != nil && reflect.DeepEqual(value, f.Default) {
			ok = false
		}
		bitmap = append(bitmap, ok)
	}
	if err := e.EncodeBitmap(bitmap); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	next := 0
	for _, f := range fields {
		value, ok := rec[f.Name]
		if f.inBitmap() {
			ok = bitmap[next]
			next++
		} else if !ok {
			return fmt.Errorf("%s.%s: %w: mandatory component missing", name, f.Name, per.ErrConstraintViolation)
		}
		if !ok {
			continue
		}
		if err := f.Type.Encode(e, value); err != nil {
			return fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
	}
	return nil
}

func (s *Sequence) Decode(d *per.Decoder) (any, error) {
	rec := Record{}
	extended := false
	if s.Extensible {
		var err error
		if extended, err = d.DecodeExtensionBit(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	if err := decodeFields(d, s.Name, s.Fields, rec); err != nil {
		return nil, err
	}
	if !extended {
		return rec, nil
	}
	groups := per.NewExtensionGroupDecoder(len(s.Groups))
	if err := groups.Begin(d); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	for i, g := range s.Groups {
		if !groups.GroupPresent(i) {
			continue
		}
		err := groups.OpenGroup(i, func(inner *per.Decoder) error {
			return decodeFields(inner, s.Name, g, rec)
		})
		if err != nil {
			return nil, fmt.Errorf("%s: extension group %d: %w", s.Name, i, err)
		}
	}
	if err := groups.End(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return rec, nil
}

func decodeFields(d *per.Decoder, name string, fields []Field, rec Record) error {
	count := 0
	for _, f := range fields {
		if f.inBitmap() {
			count++
		}
	}
	bitmap, err := d.DecodeBitmap(count)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	next := 0
	for _, f := range fields {
		if f.inBitmap() {
			present := bitmap[next]
			next++
			if !present {
				if f.Default != nil {
					rec[f.Name] = f.Default
				}
				continue
			}
		}
		value, err := f.Type.Decode(d)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
		rec[f.Name] = value
	}
	return nil
}
