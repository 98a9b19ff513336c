package per

import (
	"fmt"
)

// EncodeSequenceOf encodes items as a SEQUENCE (size) OF, element by element
// with fn, preserving order.
func EncodeSequenceOf[T any](e *Encoder, items []T, size SizeConstraint, fn func(*Encoder, T) error) error {
	if err := e.EncodeSequenceOfLength(uint64(len(items)), size); err != nil {
		return err
	}
	for i, item := range items {
		if err := fn(e, item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// DecodeSequenceOf decodes a SEQUENCE (size) OF with fn decoding each element,
// in wire order.
func DecodeSequenceOf[T any](d *Decoder, size SizeConstraint, fn func(*Decoder) (T, error)) ([]T, error) {
	n, err := d.DecodeSequenceOfLength(size)
	if err != nil {
		return nil, err
	}
	// The count comes from the wire; grow as elements arrive past a modest cap.
	items := make([]T, 0, min(n, 256))
	for i := range n {
		item, err := fn(d)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
