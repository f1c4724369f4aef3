package protocol

import (
	"fmt"

	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

func init() {
	register(mcwire.IDBlockChange, decodeBlockChange)
	register(mcwire.IDMultiBlockChange, decodeMultiBlockChange)
}

// decodeBlockChange decodes a single-block-change packet: a packed position
// word (x in the high 26 bits, z in the middle 26, y in the low 12) followed
// by the new block-state id. x and z are two's-complement signed fields; y is
// unsigned.
func decodeBlockChange(s *Session, rb *mcwire.RingBuffer) error {
	position := rb.ReadU64()

	newID, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing block state id", ErrMalformedPacket)
	}

	x := signExtend(int64(position>>38&0x3FFFFFF), 26)
	z := signExtend(int64(position>>12&0x3FFFFFF), 26)
	y := int32(position & 0xFFF)

	s.world.SetBlock(x, y, z, uint32(newID))
	return nil
}

// decodeMultiBlockChange decodes a batch of block changes within one chunk
// section: a packed section position word (chunk x in the top 22 bits, chunk z
// in the next 22, section y in the low 20), a trust flag the client parses but
// does not act on, and VarInt-packed entries carrying the new id and
// section-local offsets.
func decodeMultiBlockChange(s *Session, rb *mcwire.RingBuffer) error {
	xzy := rb.ReadU64()
	_ = rb.ReadU8() // inverse trust flag

	chunkX := signExtend(int64(xzy>>42&0x3FFFFF), 22)
	chunkZ := signExtend(int64(xzy>>20&0x3FFFFF), 22)
	sectionY := int32(xzy & 0xFFFFF)

	count, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing record count", ErrMalformedPacket)
	}

	for i := uint64(0); i < count; i++ {
		entry, ok := rb.ReadVarInt()
		if !ok {
			return fmt.Errorf("%w: truncated record %d of %d", ErrMalformedPacket, i, count)
		}

		newID := uint32(entry >> 12)
		relX := int32(entry >> 8 & 0xF)
		relZ := int32(entry >> 4 & 0xF)
		relY := int32(entry & 0xF)

		s.world.SetBlock(chunkX*16+relX, sectionY*16+relY, chunkZ*16+relZ, newID)
	}
	return nil
}

// signExtend interprets the low bits of v as a two's-complement signed field.
func signExtend(v int64, bits uint) int32 {
	shift := 64 - bits
	return int32(v << shift >> shift)
}
