package bitbuffer

import (
	"fmt"
)

// Reader consumes bits from a borrowed byte slice. The slice is never modified.
// Fields:
//
//	buff: input bytes
//	size: number of readable bits, len(buff)*8
//	read: total number of bits consumed; the cursor position
type Reader struct {
	buff []byte
	size uint64
	read uint64
}

// NewReader creates a Reader positioned at the first bit of data.
func NewReader(data []byte) *Reader {
	return &Reader{
		buff: data,
		size: uint64(len(data)) * BITS_PER_BYTE,
	}
}

// NumRead returns the total number of bits read, including skipped bits.
func (r *Reader) NumRead() uint64 {
	return r.read
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() uint64 {
	return r.size - r.read
}

// Size returns the input length in bits.
func (r *Reader) Size() uint64 {
	return r.size
}

// String implements the fmt.Stringer interface for Reader.
func (r *Reader) String() string {
	return fmt.Sprintf("Reader{len=%d, read=%d, remaining=%d}", len(r.buff), r.read, r.Remaining())
}

func (r *Reader) ensure(bits uint64) error {
	if r.Remaining() < bits {
		return overrun(r.read, bits, r.Remaining())
	}
	return nil
}

// Read reads the next num bits MSB first and returns them right-aligned.
// num=0 returns 0 without error. num > 64 returns ErrBitCount.
// Returns an error wrapping ErrOverrun, without advancing, if fewer than num bits remain.
func (r *Reader) Read(num uint8) (uint64, error) {
	if ENABLE_TRACE {
		trace("ENTER", "Read", r.String(), fmt.Sprintf("num=%d", num))
		defer trace("EXIT", "Read", r.String(), "")
	}
	if num > 64 {
		return 0, ErrBitCount
	}
	if num == 0 {
		return 0, nil
	}
	if err := r.ensure(uint64(num)); err != nil {
		return 0, err
	}

	var (
		index = r.read >> 3
		shift = uint(r.read & 7)
	)
	// Fast path: the requested bits fit in the eight bytes starting at index.
	if shift+uint(num) <= 64 {
		end := min(index+TMP_ARRAY_SIZE, uint64(len(r.buff)))
		word := bigEndian(r.buff[index:end])
		r.read += uint64(num)
		return (word << shift) >> (64 - uint(num)), nil
	}

	var (
		result  uint64
		pending = num
	)
	for pending > 0 {
		var (
			offset    = uint8(r.read & 7)
			available = 8 - offset
			reading   = min(pending, available)
			bits      = (r.buff[r.read>>3] >> (available - reading)) & uint8((uint16(1)<<reading)-1)
		)
		result = (result << reading) | uint64(bits)
		r.read += uint64(reading)
		pending -= reading
	}
	return result, nil
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	bit, err := r.Read(1)
	if err != nil {
		return false, err
	}
	return bit == 1, nil
}

// ReadBytes reads exactly n full octets from the current bit offset.
// Fast path: direct copy when byte-aligned; otherwise byte by byte via Read.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if ENABLE_TRACE {
		trace("ENTER", "ReadBytes", r.String(), fmt.Sprintf("n=%d", n))
		defer trace("EXIT", "ReadBytes", r.String(), "")
	}
	if n < 0 {
		return nil, fmt.Errorf("bitbuffer: negative byte count %d", n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	if err := r.ensure(uint64(n) * BITS_PER_BYTE); err != nil {
		return nil, err
	}
	result := make([]byte, n)
	if r.read&7 == 0 {
		index := r.read >> 3
		copy(result, r.buff[index:index+uint64(n)])
		r.read += uint64(n) * BITS_PER_BYTE
		return result, nil
	}
	for i := range result {
		value, err := r.Read(8)
		if err != nil {
			return nil, err
		}
		result[i] = uint8(value)
	}
	return result, nil
}

// ReadBits reads count bits and returns them MSB first in ceil(count/8) bytes.
// Unused bits of the last byte are zero.
func (r *Reader) ReadBits(count uint64) ([]byte, error) {
	if err := r.ensure(count); err != nil {
		return nil, err
	}
	result, err := r.ReadBytes(int(count / BITS_PER_BYTE))
	if err != nil {
		return nil, err
	}
	if remaining := uint8(count % BITS_PER_BYTE); remaining > 0 {
		value, err := r.Read(remaining)
		if err != nil {
			return nil, err
		}
		result = append(result, uint8(value<<(8-remaining)))
	}
	return result, nil
}

// Skip advances the cursor by bits without returning data.
func (r *Reader) Skip(bits uint64) error {
	if err := r.ensure(bits); err != nil {
		return err
	}
	r.read += bits
	return nil
}

// Advance skips remaining bits to reach the next byte boundary.
// This is the read counterpart to Writer.Align. Idempotent when aligned.
func (r *Reader) Advance() error {
	if off := r.read & 7; off > 0 {
		return r.Skip(8 - off)
	}
	return nil
}
