package protocol

import "errors"

// Fatal decode errors. Any of these surfacing from a drain means either a
// protocol-version mismatch or a corrupted stream; byte-level resynchronization
// is not possible, so the connection layer closes the socket instead of
// retrying.
var (
	// ErrMalformedPacket reports a structural assumption violated inside a
	// fully-buffered frame, such as an unexpected NBT tag type.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrDecompressionFailed reports an inflate failure or a payload that does
	// not fit the decompression scratch buffer.
	ErrDecompressionFailed = errors.New("decompression failed")

	// ErrPaletteIndexOutOfRange reports a packed block index that the
	// section's palette cannot resolve.
	ErrPaletteIndexOutOfRange = errors.New("palette index out of range")
)
