package per

const (
	// MAX_CONSTRAINED_LENGTH is the bound below which a length determinant with a
	// known upper bound is encoded as a constrained whole number.
	// ITU-T X.691 Section 11.9.3.3 / 11.9.4.1
	MAX_CONSTRAINED_LENGTH = 65536 // 64K

	// FRAGMENT_SIZE is the size of each fragment for fragmented lengths. Unconstrained
	// lengths must stay below it: fragmentation is not supported.
	// ITU-T X.691 Section 11.9.4.2
	FRAGMENT_SIZE = 16384 // 16K = 16 * 1024

	// MAX_INTEGER_OCTETS is the widest integer contents this runtime accepts.
	MAX_INTEGER_OCTETS = 8

	// DEFAULT_MAX_EXTENSION_ADDITIONS bounds the extension addition bitmap length
	// read from the wire unless a Decoder is configured otherwise.
	DEFAULT_MAX_EXTENSION_ADDITIONS = 64
)
