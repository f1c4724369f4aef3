package protocol

import (
	"testing"

	"github.com/CodeDiseaseDev/repolymer/internal/world"
	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

func TestSignExtend(t *testing.T) {
	cases := []struct {
		v    int64
		bits uint
		want int32
	}{
		{0, 26, 0},
		{1, 26, 1},
		{0x1FFFFFF, 26, 1<<25 - 1},
		{0x2000000, 26, -(1 << 25)},
		{0x3FFFFFF, 26, -1},
		{0x1FFFFF, 22, 1<<21 - 1},
		{0x200000, 22, -(1 << 21)},
		{0x3FFFFF, 22, -1},
	}
	for _, tc := range cases {
		if got := signExtend(tc.v, tc.bits); got != tc.want {
			t.Errorf("signExtend(%#x, %d) = %d, want %d", tc.v, tc.bits, got, tc.want)
		}
	}
}

func packPosition(x, z int32, y uint32) uint64 {
	return (uint64(x)&0x3FFFFFF)<<38 | (uint64(z)&0x3FFFFFF)<<12 | uint64(y)&0xFFF
}

func blockChangeBody(pos uint64, id uint64) []byte {
	body := mcwire.AppendVarInt(nil, mcwire.IDBlockChange)
	body = appendU64(body, pos)
	return mcwire.AppendVarInt(body, id)
}

func TestDecodeBlockChange(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 16)

	cases := []struct {
		x, z int32
		y    uint32
		id   uint64
	}{
		{0, 0, 0, 1},
		{-1, -1, 0, 2},
		{7, -30, 200, 3},
		{1<<25 - 1, -(1 << 25), 255, 4},
	}
	for _, tc := range cases {
		body := blockChangeBody(packPosition(tc.x, tc.z, tc.y), tc.id)
		if err := drainBytes(t, s, rb, frame(body)); err != nil {
			t.Fatalf("Drain (%d,%d,%d): %v", tc.x, tc.y, tc.z, err)
		}
		if got := s.World().Block(tc.x, int32(tc.y), tc.z); got != uint32(tc.id) {
			t.Errorf("Block(%d,%d,%d) = %d, want %d", tc.x, tc.y, tc.z, got, tc.id)
		}
	}
}

func TestDecodeBlockChangeOutsideBuildHeight(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 16)

	// y sits above the last section; the change is dropped, not fatal.
	body := blockChangeBody(packPosition(0, 0, 4000), 9)
	if err := drainBytes(t, s, rb, frame(body)); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if s.World().Queue().Len() != 0 {
		t.Error("out-of-range block change queued a rebuild")
	}
}

func TestDecodeMultiBlockChange(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 16)

	chunkX, chunkZ, sectionY := int32(-2), int32(3), uint64(1)
	xzy := (uint64(chunkX)&0x3FFFFF)<<42 | (uint64(chunkZ)&0x3FFFFF)<<20 | sectionY&0xFFFFF

	body := mcwire.AppendVarInt(nil, mcwire.IDMultiBlockChange)
	body = appendU64(body, xzy)
	body = append(body, 0) // inverse trust flag
	records := []struct {
		id               uint64
		relX, relY, relZ uint64
	}{
		{100, 0, 0, 0},
		{101, 15, 15, 15},
		{102, 7, 3, 10},
	}
	body = mcwire.AppendVarInt(body, uint64(len(records)))
	for _, r := range records {
		body = mcwire.AppendVarInt(body, r.id<<12|r.relX<<8|r.relZ<<4|r.relY)
	}

	if err := drainBytes(t, s, rb, frame(body)); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	cache := s.World()
	for _, r := range records {
		x := chunkX*16 + int32(r.relX)
		y := int32(sectionY)*16 + int32(r.relY)
		z := chunkZ*16 + int32(r.relZ)
		if got := cache.Block(x, y, z); got != uint32(r.id) {
			t.Errorf("Block(%d,%d,%d) = %d, want %d", x, y, z, got, r.id)
		}
	}

	// All records land in one section of one chunk: one pending rebuild.
	if got := cache.Queue().Len(); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
	if !cache.Queue().Contains(world.ChunkPos{X: chunkX, Z: chunkZ}) {
		t.Error("changed chunk not queued")
	}
}

func TestDecodeMultiBlockChangeTruncated(t *testing.T) {
	s, _ := newTestSession(t)
	rb := mcwire.NewRingBuffer(1 << 16)

	body := mcwire.AppendVarInt(nil, mcwire.IDMultiBlockChange)
	body = appendU64(body, 0)
	body = append(body, 0)
	body = mcwire.AppendVarInt(body, 3) // three records announced, none present

	err := drainBytes(t, s, rb, frame(body))
	if err == nil {
		t.Fatal("Drain accepted a truncated record list")
	}
}
