package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/thebagchi/rrc-uper/lib/per"
)

// Alternative is one named alternative of a Choice.
type Alternative struct {
	Name string
	Type Type
}

// Choice is a CHOICE type. Extensions are the alternatives after the extension
// marker known to this build; their values travel as open types.
type Choice struct {
	Name         string
	Alternatives []Alternative
	Extensions   []Alternative
	Extensible   bool

	once sync.Once
	dom  per.Enumeration
}

func (c *Choice) domain() per.Enumeration {
	c.once.Do(func() {
		c.dom = per.NewEnumeration(uint64(len(c.Alternatives)), uint64(len(c.Extensions)), c.Extensible || len(c.Extensions) > 0)
	})
	return c.dom
}

func (c *Choice) lookup(name string) (uint64, Alternative, bool) {
	for i, alt := range c.Alternatives {
		if alt.Name == name {
			return uint64(i), alt, true
		}
	}
	for i, alt := range c.Extensions {
		if alt.Name == name {
			return uint64(len(c.Alternatives) + i), alt, true
		}
	}
	return 0, Alternative{}, false
}

func (c *Choice) alternative(index uint64) Alternative {
	if index < uint64(len(c.Alternatives)) {
		return c.Alternatives[index]
	}
	return c.Extensions[index-uint64(len(c.Alternatives))]
}

func (c *Choice) Encode(e *per.Encoder, v any) error {
	domain := c.domain()
	switch value := v.(type) {
	case Selection:
		index, alt, ok := c.lookup(value.Name)
		if !ok {
			return fmt.Errorf("%s: %w: unknown alternative %q", c.Name, per.ErrConstraintViolation, value.Name)
		}
		if err := e.EncodeChoiceIndex(index, domain); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		if domain.IsExtension(index) {
			err := e.EncodeOpenType(func(inner *per.Encoder) error {
				return alt.Type.Encode(inner, value.Value)
			})
			if err != nil {
				return fmt.Errorf("%s.%s: %w", c.Name, alt.Name, err)
			}
			return nil
		}
		if err := alt.Type.Encode(e, value.Value); err != nil {
			return fmt.Errorf("%s.%s: %w", c.Name, alt.Name, err)
		}
		return nil
	case Unrecognized:
		if !domain.Extensible || value.Index < domain.Count() {
			return fmt.Errorf("%s: %w: index %d is not an unknown extension", c.Name, per.ErrConstraintViolation, value.Index)
		}
		if err := e.EncodeExtensionBit(true); err != nil {
			return err
		}
		if err := e.EncodeNormallySmallNonNegativeWholeNumber(value.Index - domain.Root); err != nil {
			return err
		}
		return e.EncodeOpenTypeBytes(value.Raw)
	}
	return fmt.Errorf("%s: %w", c.Name, typeError("CHOICE", v))
}

// Decode reads the index first, then decodes the chosen alternative into a new
// Selection. Unknown extension alternatives are skipped by their length and
// returned as Unrecognized; unknown root indexes are fatal.
func (c *Choice) Decode(d *per.Decoder) (any, error) {
	domain := c.domain()
	index, err := d.DecodeChoiceIndex(domain)
	if errors.Is(err, per.ErrUnknownExtension) {
		raw, err := d.SkipOpenType()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		return Unrecognized{Index: index, Raw: raw}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	alt := c.alternative(index)
	if !domain.IsExtension(index) {
		value, err := alt.Type.Decode(d)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.Name, alt.Name, err)
		}
		return Selection{Name: alt.Name, Value: value}, nil
	}
	var value any
	err = d.DecodeOpenType(func(inner *per.Decoder) error {
		var err error
		value, err = alt.Type.Decode(inner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.Name, alt.Name, err)
	}
	return Selection{Name: alt.Name, Value: value}, nil
}
