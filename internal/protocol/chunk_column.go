package protocol

import (
	"fmt"

	"github.com/CodeDiseaseDev/repolymer/internal/world"
	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

func init() {
	register(mcwire.IDChunkData, decodeChunkColumn)
	register(mcwire.IDUnloadChunk, decodeUnloadChunk)
}

// NBT tag types appearing in the chunk packet's heightmap structure.
const (
	tagEnd       = 0
	tagCompound  = 10
	tagLongArray = 12
)

// MinBitsPerBlock is the floor the protocol clamps section bit widths to.
const MinBitsPerBlock = 4

// PaletteThreshold is the bits-per-block value at and above which sections
// carry global block-state ids directly instead of a palette.
const PaletteThreshold = 9

// decodeChunkColumn decodes a full chunk-column packet into the cache and
// enqueues the column for rebuild.
func decodeChunkColumn(s *Session, rb *mcwire.RingBuffer) error {
	chunkX := int32(rb.ReadU32())
	chunkZ := int32(rb.ReadU32())
	fullColumn := rb.ReadU8() != 0

	bitmask, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing section bitmask", ErrMalformedPacket)
	}

	if err := skipHeightmaps(rb); err != nil {
		return fmt.Errorf("chunk (%d, %d): %w", chunkX, chunkZ, err)
	}

	// Biomes are carried for full columns only; this core consumes without
	// retaining them.
	if fullColumn {
		biomeCount, ok := rb.ReadVarInt()
		if !ok {
			return fmt.Errorf("%w: missing biome count", ErrMalformedPacket)
		}
		for i := uint64(0); i < biomeCount; i++ {
			if _, ok := rb.ReadVarInt(); !ok {
				return fmt.Errorf("%w: truncated biome array", ErrMalformedPacket)
			}
		}
	}

	dataSize, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing section data size", ErrMalformedPacket)
	}

	// The declared size is permitted to exceed what the sections actually
	// consume, so the cursor is forced here afterwards instead of trusting
	// the sum of per-section reads.
	endOffset := (rb.ReadOffset() + int(dataSize)) % rb.Cap()

	if dataSize > 0 {
		for sy := 0; sy < world.ColumnHeight; sy++ {
			if bitmask&(1<<sy) == 0 {
				continue
			}
			if err := decodeSection(s, rb, chunkX, chunkZ, sy); err != nil {
				return fmt.Errorf("chunk (%d, %d) section %d: %w", chunkX, chunkZ, sy, err)
			}
		}
		s.world.BeginColumn(chunkX, chunkZ, uint16(bitmask))
	}

	rb.SetReadOffset(endOffset)

	blockEntityCount, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing block entity count", ErrMalformedPacket)
	}
	if blockEntityCount > 0 {
		s.log.Debug("block entities not decoded", "count", blockEntityCount, "chunkX", chunkX, "chunkZ", chunkZ)
	}

	s.world.OnChunkLoad(chunkX, chunkZ)
	return nil
}

// decodeSection expands one bit-packed section into pooled scratch storage and
// copies the completed array into the cache.
func decodeSection(s *Session, rb *mcwire.RingBuffer, chunkX, chunkZ int32, sy int) error {
	_ = rb.ReadU16() // block count, informational

	bpb := rb.ReadU8()
	if bpb < MinBitsPerBlock {
		bpb = MinBitsPerBlock
	}

	palette := getPaletteScratch()
	defer putPaletteScratch(palette)

	usePalette := bpb < PaletteThreshold
	if usePalette {
		paletteLen, ok := rb.ReadVarInt()
		if !ok {
			return fmt.Errorf("%w: missing palette length", ErrMalformedPacket)
		}
		for i := uint64(0); i < paletteLen; i++ {
			entry, ok := rb.ReadVarInt()
			if !ok {
				return fmt.Errorf("%w: truncated palette", ErrMalformedPacket)
			}
			*palette = append(*palette, uint32(entry))
		}
	}

	wordCount, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing data array length", ErrMalformedPacket)
	}

	blocks := getSectionScratch()
	defer putSectionScratch(blocks)

	idMask := uint64(1)<<bpb - 1
	perWord := 64 / uint(bpb)
	blockIndex := 0

	for i := uint64(0); i < wordCount; i++ {
		word := rb.ReadU64()
		for j := uint(0); j < perWord; j++ {
			if blockIndex >= world.SectionVolume {
				break
			}
			index := (word >> (j * uint(bpb))) & idMask
			if usePalette {
				if index >= uint64(len(*palette)) {
					return fmt.Errorf("%w: index %d, palette size %d", ErrPaletteIndexOutOfRange, index, len(*palette))
				}
				blocks[blockIndex] = (*palette)[index]
			} else {
				blocks[blockIndex] = uint32(index)
			}
			blockIndex++
		}
	}

	s.world.StoreSection(chunkX, chunkZ, sy, blocks)
	return nil
}

// skipHeightmaps structurally validates and consumes the fixed two-entry
// heightmap structure without interpreting it: a root compound, two named
// long-array tags whose words are skipped, and the end tag. Any tag mismatch
// means the decoder's model of the format is wrong, which is fatal.
func skipHeightmaps(rb *mcwire.RingBuffer) error {
	if t := rb.ReadU8(); t != tagCompound {
		return fmt.Errorf("%w: heightmap root tag %d, want compound", ErrMalformedPacket, t)
	}
	rb.Skip(int(rb.ReadU16())) // root name, empty

	for i := 0; i < 2; i++ {
		if t := rb.ReadU8(); t != tagLongArray {
			return fmt.Errorf("%w: heightmap entry tag %d, want long array", ErrMalformedPacket, t)
		}
		rb.Skip(int(rb.ReadU16())) // entry name
		words := rb.ReadU32()
		rb.Skip(int(words) * 8)
	}

	if t := rb.ReadU8(); t != tagEnd {
		return fmt.Errorf("%w: heightmap terminator tag %d, want end", ErrMalformedPacket, t)
	}
	return nil
}

// decodeUnloadChunk marks the column unloaded; the cache signals the mesher to
// release its resources if the slot has not been reused.
func decodeUnloadChunk(s *Session, rb *mcwire.RingBuffer) error {
	chunkX := int32(rb.ReadU32())
	chunkZ := int32(rb.ReadU32())
	s.world.OnChunkUnload(chunkX, chunkZ)
	return nil
}
