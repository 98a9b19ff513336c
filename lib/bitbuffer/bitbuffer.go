// Package bitbuffer provides bit-level I/O for unaligned PER (Packed Encoding Rules).
//
// # Overview
//
// Writer appends bits to a growable buffer and Reader consumes bits from a borrowed
// byte slice. Both use MSB-first bit ordering and are the only types in this module
// that manipulate raw bit offsets.
//
// # Key Features
//
//   - Fast paths for byte-aligned operations using encoding/binary.BigEndian
//   - Slow paths for general bit-packing/unpacking
//   - Dynamic buffer growth with exponential allocation strategy
//   - Counters for total bits written/read (uint64)
//   - Reads never advance past the end of input; a short read fails with ErrOverrun
//     and leaves the cursor untouched
//
// # Scope
//
// This package focuses on bit-level manipulation. Callers are responsible for
// higher-level ASN.1 semantics, type encoding, and constraint validation.
//
// # Thread Safety
//
// Writer and Reader are NOT thread-safe. Each goroutine must use its own instance.
package bitbuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// ENABLE_TRACE controls whether trace output is printed
	ENABLE_TRACE = false

	// BITS_PER_BYTE is the number of bits in a byte
	BITS_PER_BYTE = 8

	// TMP_ARRAY_SIZE is the size of temporary arrays used for binary operations
	TMP_ARRAY_SIZE = 8
)

var (
	// ErrOverrun is returned when a read needs more bits than remain in the input.
	ErrOverrun = errors.New("buffer overrun")

	// ErrBitCount is returned for bit counts outside 0..64.
	ErrBitCount = errors.New("bit count must be between 0 and 64")
)

// trace prints debug information about a cursor when ENABLE_TRACE is set.
func trace(event, function, state, arguments string) {
	if !ENABLE_TRACE {
		return
	}
	line := fmt.Sprintf("[%s %s] %s", event, function, state)
	if arguments != "" {
		line = line + " --> " + arguments
	}
	println(line)
}

// mask returns the low num bits of value.
func mask(value uint64, num uint8) uint64 {
	if num >= 64 {
		return value
	}
	return value & ((uint64(1) << num) - 1)
}

// overrun builds an ErrOverrun-wrapping error describing the failed request.
func overrun(position, wanted, remaining uint64) error {
	return fmt.Errorf("%w: need %d bits at bit %d, %d remaining", ErrOverrun, wanted, position, remaining)
}

// bigEndian reads up to eight bytes as the high bytes of a uint64.
func bigEndian(data []byte) uint64 {
	tmp := [TMP_ARRAY_SIZE]byte{}
	copy(tmp[:], data)
	return binary.BigEndian.Uint64(tmp[:])
}
