package bitbuffer

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// InitialBufferSize is the initial capacity for the buffer in NewWriter.
var InitialBufferSize = 64

// Writer appends bits to an owned, growable byte buffer.
// Fields:
//
//	buff: encoded bytes; the last byte may be partially filled
//	written: total number of bits written, the offset inside the last byte is written%8
type Writer struct {
	buff    []byte
	written uint64
}

// NewWriter creates a new Writer with InitialBufferSize bytes of capacity.
func NewWriter() *Writer {
	return &Writer{
		buff: make([]byte, 0, InitialBufferSize),
	}
}

// offset returns the number of bits already used in the last byte (0-7).
func (w *Writer) offset() uint8 {
	return uint8(w.written & 7)
}

// Len returns the number of bytes in the buffer, including a partial final byte.
func (w *Writer) Len() int {
	return len(w.buff)
}

// NumWritten returns the total number of bits written, including alignment padding.
func (w *Writer) NumWritten() uint64 {
	return w.written
}

// Bytes returns the encoded data. A partial final byte is zero padded.
func (w *Writer) Bytes() []byte {
	if w.written == 0 {
		return nil
	}
	return w.buff
}

// Reset discards all written data and keeps the allocated buffer.
func (w *Writer) Reset() {
	w.buff = w.buff[:0]
	w.written = 0
}

// String implements the fmt.Stringer interface for Writer.
func (w *Writer) String() string {
	return fmt.Sprintf("Writer{len=%d, offset=%d, written=%d}", len(w.buff), w.offset(), w.written)
}

// grow appends n zero bytes, doubling capacity when it runs out so that
// growth stays O(1) amortized.
func (w *Writer) grow(n int) {
	if cap(w.buff) < len(w.buff)+n {
		capacity := max(cap(w.buff)*2, len(w.buff)+n)
		w.buff = slices.Grow(w.buff, capacity-len(w.buff))
	}
	start := len(w.buff)
	w.buff = w.buff[:start+n]
	clear(w.buff[start:])
}

// Write appends the least significant num bits of value, MSB first.
// num=0 writes nothing. num > 64 returns ErrBitCount.
//
// Fast path: O(1) amortized when byte-aligned.
// Slow path: fills the partial last byte, then the following bytes chunk by chunk.
func (w *Writer) Write(num uint8, value uint64) error {
	if ENABLE_TRACE {
		trace("ENTER", "Write", w.String(), fmt.Sprintf("bits=%d value=%d", num, value))
		defer trace("EXIT", "Write", w.String(), "")
	}
	if num > 64 {
		return ErrBitCount
	}
	if num == 0 {
		return nil
	}
	value = mask(value, num)

	if w.offset() == 0 {
		nbytes := (int(num) + 7) >> 3
		tmp := [TMP_ARRAY_SIZE]byte{}
		binary.BigEndian.PutUint64(tmp[:], value<<(64-uint(num)))
		w.grow(nbytes)
		copy(w.buff[len(w.buff)-nbytes:], tmp[:nbytes])
		w.written += uint64(num)
		return nil
	}

	pending := num
	for pending > 0 {
		if w.offset() == 0 {
			w.grow(1)
		}
		var (
			available = 8 - w.offset()
			nbits     = min(pending, available)
			remaining = pending - nbits
			chunk     = uint8(value>>remaining) & uint8((uint16(1)<<nbits)-1)
			shift     = available - nbits
			pos       = len(w.buff) - 1
		)
		w.buff[pos] |= chunk << shift
		w.written += uint64(nbits)
		pending = remaining
	}
	return nil
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit bool) error {
	if bit {
		return w.Write(1, 1)
	}
	return w.Write(1, 0)
}

// WriteBytes writes full octets continuing from the current bit offset.
// It does NOT force alignment.
func (w *Writer) WriteBytes(data []byte) error {
	if ENABLE_TRACE {
		trace("ENTER", "WriteBytes", w.String(), fmt.Sprintf("len(data)=%d", len(data)))
		defer trace("EXIT", "WriteBytes", w.String(), "")
	}
	if len(data) == 0 {
		return nil
	}
	if w.offset() == 0 {
		w.buff = append(w.buff, data...)
		w.written += uint64(len(data)) * BITS_PER_BYTE
		return nil
	}
	for _, b := range data {
		if err := w.Write(8, uint64(b)); err != nil {
			return err
		}
	}
	return nil
}

// WriteBits writes the first count bits of data, MSB first. Bits of the last
// used byte beyond count are ignored.
func (w *Writer) WriteBits(data []byte, count uint64) error {
	if count == 0 {
		return nil
	}
	if uint64(len(data))*BITS_PER_BYTE < count {
		return fmt.Errorf("bitbuffer: %d bits requested from %d bytes", count, len(data))
	}
	num := count / BITS_PER_BYTE
	if err := w.WriteBytes(data[:num]); err != nil {
		return err
	}
	if remaining := uint8(count % BITS_PER_BYTE); remaining > 0 {
		return w.Write(remaining, uint64(data[num]>>(8-remaining)))
	}
	return nil
}

// Align pads zero bits up to the next byte boundary. Idempotent when aligned.
func (w *Writer) Align() error {
	if off := w.offset(); off > 0 {
		w.written += uint64(8 - off)
	}
	return nil
}
