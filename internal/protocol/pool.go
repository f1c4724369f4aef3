package protocol

import (
	"sync"

	"github.com/CodeDiseaseDev/repolymer/internal/world"
)

// Scratch pools for per-packet work. Buffers are acquired at the start of a
// packet and returned unconditionally, including on error paths, so a
// malformed packet cannot leak scratch capacity into the next one.

var sectionPool = sync.Pool{
	New: func() any {
		return new(world.SectionBlocks)
	},
}

func getSectionScratch() *world.SectionBlocks {
	s := sectionPool.Get().(*world.SectionBlocks)
	for i := range s {
		s[i] = 0
	}
	return s
}

func putSectionScratch(s *world.SectionBlocks) {
	sectionPool.Put(s)
}

// MaxStringLength bounds VarInt string prefixes; it matches the protocol's
// maximum chat payload.
const MaxStringLength = 32767

var stringPool = sync.Pool{
	New: func() any {
		buf := make([]byte, MaxStringLength)
		return &buf
	},
}

func getStringScratch() *[]byte {
	return stringPool.Get().(*[]byte)
}

func putStringScratch(buf *[]byte) {
	stringPool.Put(buf)
}

var palettePool = sync.Pool{
	New: func() any {
		p := make([]uint32, 0, 256)
		return &p
	},
}

func getPaletteScratch() *[]uint32 {
	p := palettePool.Get().(*[]uint32)
	*p = (*p)[:0]
	return p
}

func putPaletteScratch(p *[]uint32) {
	palettePool.Put(p)
}

var compressedPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 64*1024)
		return &buf
	},
}

func getCompressedScratch(n int) *[]byte {
	p := compressedPool.Get().(*[]byte)
	if cap(*p) < n {
		*p = make([]byte, n)
	}
	*p = (*p)[:n]
	return p
}

func putCompressedScratch(buf *[]byte) {
	compressedPool.Put(buf)
}
