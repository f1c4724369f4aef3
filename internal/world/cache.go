package world

import (
	"log/slog"
)

// DefaultCacheSide is the default edge length of the square chunk cache.
const DefaultCacheSide = 48

// MeshReleaser is notified when a column's decoded contents become invalid and
// any GPU-side resources built from them should be released. The external
// mesher implements this.
type MeshReleaser interface {
	ReleaseColumn(x, z int32)
}

// Cache is a bounded, coordinate-wrapped store of chunk columns. A column at
// (x, z) always lives in slot (CacheIndex(x), CacheIndex(z)); staleness is
// detected by comparing the slot's stored coordinate, never by slot occupancy
// alone.
//
// The cache is mutated only by the decode pipeline, on the thread running the
// drain loop. The mesher drains the build queue on the same thread or under an
// external synchronization contract; no locking is done here.
type Cache struct {
	log      *slog.Logger
	side     int
	columns  []*Column
	infos    []ColumnInfo
	queue    *BuildQueue
	releaser MeshReleaser
}

// NewCache creates a cache with side×side slots.
func NewCache(side int, log *slog.Logger) *Cache {
	if side <= 0 {
		side = DefaultCacheSide
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		log:     log,
		side:    side,
		columns: make([]*Column, side*side),
		infos:   make([]ColumnInfo, side*side),
		queue:   NewBuildQueue(side * side),
	}
}

// SetMeshReleaser registers the external mesher's release callback.
func (c *Cache) SetMeshReleaser(r MeshReleaser) { c.releaser = r }

// Side returns the cache edge length.
func (c *Cache) Side() int { return c.side }

// Queue returns the rebuild queue consumed by the external mesher.
func (c *Cache) Queue() *BuildQueue { return c.queue }

// CacheIndex wraps a signed chunk coordinate onto [0, side).
func (c *Cache) CacheIndex(v int32) int {
	side := int32(c.side)
	return int(((v % side) + side) % side)
}

func (c *Cache) slotIndex(x, z int32) int {
	return c.CacheIndex(z)*c.side + c.CacheIndex(x)
}

// Info returns the metadata for the slot addressed by (x, z). The returned
// info may describe a different absolute coordinate; callers must check
// Matches before trusting it.
func (c *Cache) Info(x, z int32) *ColumnInfo {
	return &c.infos[c.slotIndex(x, z)]
}

// Column returns the storage and metadata for (x, z), with ok reporting
// whether the slot currently holds that exact coordinate.
func (c *Cache) Column(x, z int32) (*Column, *ColumnInfo, bool) {
	i := c.slotIndex(x, z)
	info := &c.infos[i]
	return c.columns[i], info, c.columns[i] != nil && info.Matches(x, z)
}

func (c *Cache) ensureColumn(x, z int32) (*Column, *ColumnInfo) {
	i := c.slotIndex(x, z)
	if c.columns[i] == nil {
		c.columns[i] = &Column{}
	}
	return c.columns[i], &c.infos[i]
}

// BeginColumn claims the slot for (x, z) before section data is written into
// it. If the slot was holding a different coordinate its presence bitmask is
// cleared first, so stale sections from the previous tenant never appear
// present. The packet's section bitmask is merged into the slot metadata.
func (c *Cache) BeginColumn(x, z int32, bitmask uint16) *Column {
	col, info := c.ensureColumn(x, z)
	if !info.Matches(x, z) {
		info.Bitmask = 0
		info.Loaded = false
	}
	info.X = x
	info.Z = z
	info.Bitmask |= bitmask
	return col
}

// StoreSection copies a fully decoded block array into section sy of column
// (x, z). The source is always a complete scratch array, so an interrupted
// decode never leaves a section half overwritten.
func (c *Cache) StoreSection(x, z int32, sy int, blocks *SectionBlocks) {
	col := c.BeginColumn(x, z, 1<<sy)
	col.Sections[sy] = *blocks
}

// SetBlock writes one block-state id at absolute coordinates and enqueues the
// owning chunk for rebuild. Chunk resolution floor-divides by the section
// size, so negative coordinates resolve to the correct column.
func (c *Cache) SetBlock(x, y, z int32, id uint32) {
	sy := int(y) / SectionSize
	if y < 0 || sy >= ColumnHeight {
		c.log.Debug("block change outside vertical range", "x", x, "y", y, "z", z)
		return
	}
	chunkX := floorDiv(x, SectionSize)
	chunkZ := floorDiv(z, SectionSize)

	col, info := c.ensureColumn(chunkX, chunkZ)
	rx := int(x & (SectionSize - 1))
	ry := int(y & (SectionSize - 1))
	rz := int(z & (SectionSize - 1))
	col.Sections[sy][BlockIndex(rx, ry, rz)] = id

	if id != 0 {
		info.Bitmask |= 1 << sy
	}

	// A pending full rebuild covers this change; the queue drops duplicates.
	c.queue.Push(ChunkPos{X: chunkX, Z: chunkZ})
}

// Block reads the block-state id at absolute coordinates. Positions outside
// the vertical range or in unallocated slots read as air.
func (c *Cache) Block(x, y, z int32) uint32 {
	sy := int(y) / SectionSize
	if y < 0 || sy >= ColumnHeight {
		return 0
	}
	chunkX := floorDiv(x, SectionSize)
	chunkZ := floorDiv(z, SectionSize)
	col := c.columns[c.slotIndex(chunkX, chunkZ)]
	if col == nil {
		return 0
	}
	rx := int(x & (SectionSize - 1))
	ry := int(y & (SectionSize - 1))
	rz := int(z & (SectionSize - 1))
	return col.Sections[sy][BlockIndex(rx, ry, rz)]
}

// OnChunkLoad marks the slot for (x, z) loaded and enqueues a rebuild.
func (c *Cache) OnChunkLoad(x, z int32) {
	_, info := c.ensureColumn(x, z)
	info.X = x
	info.Z = z
	info.Loaded = true
	c.queue.Push(ChunkPos{X: x, Z: z})
}

// OnChunkUnload marks the slot unloaded. The mesh release signal only fires if
// the slot still holds (x, z); a slot already reused through wraparound
// belongs to another column whose meshes must stay alive.
func (c *Cache) OnChunkUnload(x, z int32) {
	info := c.Info(x, z)
	info.Loaded = false

	if !info.Matches(x, z) {
		return
	}
	if c.releaser != nil {
		c.releaser.ReleaseColumn(x, z)
	}
}

// BuildContext resolves the slots a mesh rebuild of one column reads from.
type BuildContext struct {
	Pos    ChunkPos
	Center *Column
	East   *Column
	West   *Column
	North  *Column
	South  *Column
}

// GetNeighbors resolves (x, z) and its four cardinal neighbors. It reports
// buildable only when the center slot holds (x, z) and all four neighbor
// slots are loaded and coordinate-matched. This is a query, not a guard: the
// external mesher is expected to call it before consuming a column.
func (c *Cache) GetNeighbors(x, z int32) (*BuildContext, bool) {
	center, info, ok := c.Column(x, z)
	if !ok || !info.Loaded {
		return nil, false
	}

	ctx := &BuildContext{Pos: ChunkPos{X: x, Z: z}, Center: center}
	neighbors := []struct {
		dx, dz int32
		dst    **Column
	}{
		{1, 0, &ctx.East},
		{-1, 0, &ctx.West},
		{0, -1, &ctx.North},
		{0, 1, &ctx.South},
	}
	for _, n := range neighbors {
		col, ninfo, ok := c.Column(x+n.dx, z+n.dz)
		if !ok || !ninfo.Loaded {
			return nil, false
		}
		*n.dst = col
	}
	return ctx, true
}

func floorDiv(v, by int32) int32 {
	q := v / by
	if v%by != 0 && (v < 0) != (by < 0) {
		q--
	}
	return q
}
