package protocol

import (
	"errors"
	"testing"

	"github.com/CodeDiseaseDev/repolymer/internal/world"
	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

// appendHeightmaps emits the fixed two-entry heightmap structure: a root
// compound holding two named long arrays.
func appendHeightmaps(dst []byte) []byte {
	dst = append(dst, tagCompound, 0, 0)
	for _, name := range []string{"MOTION_BLOCKING", "WORLD_SURFACE"} {
		dst = append(dst, tagLongArray)
		dst = append(dst, byte(len(name)>>8), byte(len(name)))
		dst = append(dst, name...)
		dst = appendU32(dst, 36)
		dst = append(dst, make([]byte, 36*8)...)
	}
	return append(dst, tagEnd)
}

// packWords bit-packs per-block values into 64-bit words, low bits first, the
// way sections are carried on the wire.
func packWords(values []uint64, bpb uint) []uint64 {
	perWord := 64 / bpb
	words := make([]uint64, (len(values)+int(perWord)-1)/int(perWord))
	for i, v := range values {
		w := i / int(perWord)
		j := uint(i % int(perWord))
		words[w] |= v << (j * bpb)
	}
	return words
}

func appendSection(dst []byte, wireBpb byte, palette []uint64, values []uint64, packBpb uint) []byte {
	dst = append(dst, 0, 0) // block count
	dst = append(dst, wireBpb)
	if packBpb < PaletteThreshold {
		dst = mcwire.AppendVarInt(dst, uint64(len(palette)))
		for _, p := range palette {
			dst = mcwire.AppendVarInt(dst, p)
		}
	}
	words := packWords(values, packBpb)
	dst = mcwire.AppendVarInt(dst, uint64(len(words)))
	for _, w := range words {
		dst = appendU64(dst, w)
	}
	return dst
}

// chunkBody builds a full chunk-column packet body. padding bytes are counted
// into the declared data size but carry no section content.
func chunkBody(x, z int32, full bool, bitmask uint64, sections []byte, padding int) []byte {
	body := mcwire.AppendVarInt(nil, mcwire.IDChunkData)
	body = appendU32(body, uint32(x))
	body = appendU32(body, uint32(z))
	if full {
		body = append(body, 1)
	} else {
		body = append(body, 0)
	}
	body = mcwire.AppendVarInt(body, bitmask)
	body = appendHeightmaps(body)
	if full {
		body = mcwire.AppendVarInt(body, 1024)
		for i := 0; i < 1024; i++ {
			body = mcwire.AppendVarInt(body, 1)
		}
	}
	body = mcwire.AppendVarInt(body, uint64(len(sections)+padding))
	body = append(body, sections...)
	body = append(body, make([]byte, padding)...)
	body = mcwire.AppendVarInt(body, 0) // block entities
	return body
}

func TestDecodeChunkColumnPalette(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 18)

	values := make([]uint64, world.SectionVolume)
	for i := range values {
		values[i] = uint64(i % 4)
	}
	palette := []uint64{0, 5, 17, 200}
	section := appendSection(nil, 4, palette, values, 4)

	body := chunkBody(3, -2, true, 1<<5, section, 0)
	if err := drainBytes(t, s, rb, frame(body)); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	cache := s.World()
	_, info, ok := cache.Column(3, -2)
	if !ok || !info.Loaded {
		t.Fatal("column (3,-2) not loaded")
	}
	if info.Bitmask != 1<<5 {
		t.Errorf("bitmask = %#x, want %#x", info.Bitmask, 1<<5)
	}

	baseY := int32(5 * world.SectionSize)
	for _, tc := range []struct {
		x, y, z int32
		want    uint32
	}{
		{3 * 16, baseY, -2 * 16, 0},            // index 0
		{3*16 + 1, baseY, -2 * 16, 5},          // index 1
		{3*16 + 2, baseY, -2 * 16, 17},         // index 2
		{3*16 + 3, baseY, -2 * 16, 200},        // index 3
		{3*16 + 15, baseY + 15, -2*16 + 15, 200}, // index 4095 % 4
	} {
		if got := cache.Block(tc.x, tc.y, tc.z); got != tc.want {
			t.Errorf("Block(%d,%d,%d) = %d, want %d", tc.x, tc.y, tc.z, got, tc.want)
		}
	}

	if !cache.Queue().Contains(world.ChunkPos{X: 3, Z: -2}) {
		t.Error("loaded column not queued for rebuild")
	}
}

func TestDecodeChunkColumnClampsBitWidth(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 18)

	values := make([]uint64, world.SectionVolume)
	values[0] = 1
	// Wire advertises 2 bits per block; the payload is packed at the clamped
	// width of 4.
	section := appendSection(nil, 2, []uint64{0, 9}, values, 4)

	body := chunkBody(0, 0, false, 1, section, 0)
	if err := drainBytes(t, s, rb, frame(body)); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := s.World().Block(0, 0, 0); got != 9 {
		t.Errorf("Block(0,0,0) = %d, want 9", got)
	}
}

func TestDecodeChunkColumnOversizedDataSection(t *testing.T) {
	s, out := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 18)

	values := make([]uint64, world.SectionVolume)
	values[0] = 1
	section := appendSection(nil, 4, []uint64{0, 77}, values, 4)

	// The declared data size exceeds the section payload; the decoder must
	// resynchronize on it, keeping the next frame decodable.
	body := chunkBody(1, 1, false, 1, section, 13)
	data := frame(body)
	data = append(data, frame(keepAliveBody(5))...)

	if err := drainBytes(t, s, rb, data); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := s.World().Block(16, 0, 16); got != 77 {
		t.Errorf("Block(16,0,16) = %d, want 77", got)
	}
	if len(out.keepAlives) != 1 || out.keepAlives[0] != 5 {
		t.Errorf("keep alives = %v, want [5]", out.keepAlives)
	}
}

func TestDecodeChunkColumnBadHeightmapTag(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 16)

	body := mcwire.AppendVarInt(nil, mcwire.IDChunkData)
	body = appendU32(body, 0)
	body = appendU32(body, 0)
	body = append(body, 0)
	body = mcwire.AppendVarInt(body, 0)
	body = append(body, 7) // not a compound tag

	err := drainBytes(t, s, rb, frame(body))
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("Drain = %v, want ErrMalformedPacket", err)
	}
}

func TestDecodeChunkColumnPaletteIndexOutOfRange(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 18)

	values := make([]uint64, world.SectionVolume)
	values[10] = 5 // palette has a single entry
	section := appendSection(nil, 4, []uint64{0}, values, 4)

	body := chunkBody(0, 0, false, 1, section, 0)
	err := drainBytes(t, s, rb, frame(body))
	if !errors.Is(err, ErrPaletteIndexOutOfRange) {
		t.Fatalf("Drain = %v, want ErrPaletteIndexOutOfRange", err)
	}
}

func TestDecodeChunkColumnCompressed(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 18)

	enable := mcwire.AppendVarInt(nil, mcwire.IDSetCompression)
	enable = mcwire.AppendVarInt(enable, 256)
	if err := drainBytes(t, s, rb, frame(enable)); err != nil {
		t.Fatalf("Drain set compression: %v", err)
	}

	// Paletteless section: 9 bits per block carries global ids directly.
	values := make([]uint64, world.SectionVolume)
	values[world.BlockIndex(7, 3, 10)] = 42
	section := appendSection(nil, 9, nil, values, 9)
	body := chunkBody(11, 21, true, 1<<4, section, 0)

	if err := drainBytes(t, s, rb, compressedFrame(t, body)); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	cache := s.World()
	if got := cache.Block(11*16+7, 4*16+3, 21*16+10); got != 42 {
		t.Errorf("Block = %d, want 42", got)
	}
	_, info, ok := cache.Column(11, 21)
	if !ok || !info.Loaded || info.Bitmask != 1<<4 {
		t.Fatalf("column (11,21) info = %+v, ok %v", info, ok)
	}

	// A repeat of the same column collapses into the single pending rebuild.
	if err := drainBytes(t, s, rb, compressedFrame(t, body)); err != nil {
		t.Fatalf("Drain repeat: %v", err)
	}
	if got := cache.Queue().Len(); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
	pos, ok := cache.Queue().Pop()
	if !ok || pos != (world.ChunkPos{X: 11, Z: 21}) {
		t.Errorf("queued = %v, %v, want (11,21)", pos, ok)
	}
}

func TestDecodeUnloadChunk(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 16)

	s.World().OnChunkLoad(-4, 9)

	chunkX := int32(-4)
	body := mcwire.AppendVarInt(nil, mcwire.IDUnloadChunk)
	body = appendU32(body, uint32(chunkX))
	body = appendU32(body, 9)
	if err := drainBytes(t, s, rb, frame(body)); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if info := s.World().Info(-4, 9); info.Loaded {
		t.Error("column still loaded after unload packet")
	}
}
