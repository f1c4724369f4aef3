package world

// SectionSize is the edge length of a cubic chunk section.
const SectionSize = 16

// SectionVolume is the number of blocks in one section.
const SectionVolume = SectionSize * SectionSize * SectionSize

// ColumnHeight is the number of vertically stacked sections in a column.
const ColumnHeight = 16

// ChunkPos identifies a chunk column by its signed horizontal coordinates.
type ChunkPos struct {
	X, Z int32
}

// SectionBlocks is a dense block-state array for a single section, stored in
// (y, z, x) row-major order.
type SectionBlocks [SectionVolume]uint32

// BlockIndex returns the array index for section-local coordinates.
func BlockIndex(x, y, z int) int {
	return y*SectionSize*SectionSize + z*SectionSize + x
}

// Column holds the block storage for one chunk column.
type Column struct {
	Sections [ColumnHeight]SectionBlocks
}

// ColumnInfo is the per-slot metadata kept parallel to the column storage.
// A slot only represents coordinate (x, z) while X and Z still match exactly;
// toroidal wraparound reuses slots for different absolute coordinates as the
// cache window moves.
type ColumnInfo struct {
	X, Z    int32
	Bitmask uint16
	Loaded  bool
}

// Matches reports whether the slot currently represents the given coordinate.
func (info *ColumnInfo) Matches(x, z int32) bool {
	return info.X == x && info.Z == z
}
