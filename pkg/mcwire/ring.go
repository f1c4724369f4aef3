package mcwire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

var (
	ErrBufferFull    = errors.New("ring buffer full")
	ErrStringTooLong = errors.New("string exceeds max length")
	ErrStringPrefix  = errors.New("invalid string length prefix")
)

// MaxVarIntBytes is the longest valid encoding of a 64-bit VarInt.
const MaxVarIntBytes = 10

// RingBuffer is a fixed-capacity circular byte buffer with wrapping read and
// write cursors. The connection layer appends raw socket bytes at the write
// cursor; the packet dispatcher consumes framed packets at the read cursor.
//
// One byte of capacity is reserved so that readOffset == writeOffset always
// means empty, never full.
type RingBuffer struct {
	data        []byte
	readOffset  int
	writeOffset int
}

// NewRingBuffer creates a buffer holding up to capacity-1 bytes.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 2 {
		capacity = 2
	}
	return &RingBuffer{data: make([]byte, capacity)}
}

// Cap returns the total capacity used for offset arithmetic.
func (rb *RingBuffer) Cap() int { return len(rb.data) }

// Used returns the number of unread bytes.
func (rb *RingBuffer) Used() int {
	return (rb.writeOffset - rb.readOffset + len(rb.data)) % len(rb.data)
}

// Free returns the number of bytes that may still be written.
func (rb *RingBuffer) Free() int {
	return len(rb.data) - rb.Used() - 1
}

// Reset empties the buffer and rewinds both cursors to zero.
func (rb *RingBuffer) Reset() {
	rb.readOffset = 0
	rb.writeOffset = 0
}

// ReadOffset returns the current read cursor.
func (rb *RingBuffer) ReadOffset() int { return rb.readOffset }

// WriteOffset returns the current write cursor.
func (rb *RingBuffer) WriteOffset() int { return rb.writeOffset }

// SetReadOffset forces the read cursor to an absolute position. The dispatcher
// uses this to jump to the end of a frame regardless of how much of it the
// packet decoder consumed.
func (rb *RingBuffer) SetReadOffset(offset int) {
	rb.readOffset = offset % len(rb.data)
}

// Snapshot captures the read cursor so a speculative parse can be rolled back.
func (rb *RingBuffer) Snapshot() int { return rb.readOffset }

// Restore rewinds the read cursor to a previous Snapshot.
func (rb *RingBuffer) Restore(snapshot int) { rb.readOffset = snapshot }

// Write appends p at the write cursor, wrapping as needed.
func (rb *RingBuffer) Write(p []byte) error {
	if len(p) > rb.Free() {
		return ErrBufferFull
	}
	n := copy(rb.data[rb.writeOffset:], p)
	if n < len(p) {
		copy(rb.data, p[n:])
	}
	rb.writeOffset = (rb.writeOffset + len(p)) % len(rb.data)
	return nil
}

// ReadOnce performs a single Read from r into the contiguous free region at the
// write cursor and advances it. Returns the number of bytes appended.
func (rb *RingBuffer) ReadOnce(r io.Reader) (int, error) {
	free := rb.Free()
	if free == 0 {
		return 0, ErrBufferFull
	}
	end := len(rb.data)
	if rb.readOffset > rb.writeOffset {
		end = rb.readOffset - 1
	} else if rb.readOffset == 0 {
		end = len(rb.data) - 1
	}
	n, err := r.Read(rb.data[rb.writeOffset:end])
	rb.writeOffset = (rb.writeOffset + n) % len(rb.data)
	return n, err
}

// FillFrom copies r into the buffer until EOF. It fails with ErrBufferFull if
// r holds more bytes than the buffer can accept.
func (rb *RingBuffer) FillFrom(r io.Reader) (int, error) {
	total := 0
	var chunk [4096]byte
	for {
		n, err := r.Read(chunk[:])
		if n > 0 {
			if werr := rb.Write(chunk[:n]); werr != nil {
				return total, werr
			}
			total += n
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// ReadVarInt decodes a variable-length integer: 7 data bits per byte, high bit
// set on every byte except the last, at most 10 bytes for the 64-bit range.
// Returns false with the cursor unchanged if the buffer runs out of bytes
// before a terminating byte is found; this is the signal that a frame has not
// been fully received yet.
func (rb *RingBuffer) ReadVarInt() (uint64, bool) {
	snapshot := rb.readOffset
	var result uint64
	var shift uint
	for i := 0; i < MaxVarIntBytes; i++ {
		if rb.Used() == 0 {
			rb.readOffset = snapshot
			return 0, false
		}
		b := rb.data[rb.readOffset]
		rb.readOffset = (rb.readOffset + 1) % len(rb.data)
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, true
		}
		shift += 7
	}
	rb.readOffset = snapshot
	return 0, false
}

// ReadU8 reads one byte, advancing unconditionally. Like the other fixed-width
// reads, availability is validated against the frame length by the caller, not
// against the buffer. A frame is only entered once fully buffered.
func (rb *RingBuffer) ReadU8() uint8 {
	b := rb.data[rb.readOffset]
	rb.readOffset = (rb.readOffset + 1) % len(rb.data)
	return b
}

// ReadU16 reads a big-endian uint16.
func (rb *RingBuffer) ReadU16() uint16 {
	var raw [2]byte
	rb.ReadRaw(raw[:])
	return binary.BigEndian.Uint16(raw[:])
}

// ReadU32 reads a big-endian uint32.
func (rb *RingBuffer) ReadU32() uint32 {
	var raw [4]byte
	rb.ReadRaw(raw[:])
	return binary.BigEndian.Uint32(raw[:])
}

// ReadU64 reads a big-endian uint64.
func (rb *RingBuffer) ReadU64() uint64 {
	var raw [8]byte
	rb.ReadRaw(raw[:])
	return binary.BigEndian.Uint64(raw[:])
}

// ReadFloat32 reads a big-endian IEEE 754 single.
func (rb *RingBuffer) ReadFloat32() float32 {
	return math.Float32frombits(rb.ReadU32())
}

// ReadFloat64 reads a big-endian IEEE 754 double.
func (rb *RingBuffer) ReadFloat64() float64 {
	return math.Float64frombits(rb.ReadU64())
}

// ReadRaw fills dst from the read cursor, wrapping as needed.
func (rb *RingBuffer) ReadRaw(dst []byte) {
	n := copy(dst, rb.data[rb.readOffset:])
	if n < len(dst) {
		copy(dst[n:], rb.data)
	}
	rb.readOffset = (rb.readOffset + len(dst)) % len(rb.data)
}

// Skip advances the read cursor by n bytes.
func (rb *RingBuffer) Skip(n int) {
	rb.readOffset = (rb.readOffset + n) % len(rb.data)
}

// ReadString reads a VarInt length prefix followed by that many raw bytes into
// dst, which the caller provides as scratch. Fails with ErrStringTooLong if
// the prefix exceeds max.
func (rb *RingBuffer) ReadString(dst []byte, max int) ([]byte, error) {
	length, ok := rb.ReadVarInt()
	if !ok {
		return nil, ErrStringPrefix
	}
	if length > uint64(max) {
		return nil, ErrStringTooLong
	}
	if uint64(len(dst)) < length {
		dst = make([]byte, length)
	}
	rb.ReadRaw(dst[:length])
	return dst[:length], nil
}
