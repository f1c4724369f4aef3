package protocol

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

func init() {
	register(mcwire.IDSetCompression, decodeSetCompression)
}

// decodeSetCompression handles the one-way compression transition. The packet
// carries the threshold the server will compress outbound packets above; the
// flag itself never reverts for the connection's lifetime. The id overlaps
// with a play-state packet, so the transition only applies during login.
func decodeSetCompression(s *Session, rb *mcwire.RingBuffer) error {
	if s.play {
		return nil
	}
	threshold, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing compression threshold", ErrMalformedPacket)
	}
	s.compression = true
	s.threshold = int(threshold)
	s.log.Info("compression enabled", "threshold", threshold)
	return nil
}

// decompress inflates compressedLen bytes at rb's read cursor into the
// session's scratch ring and returns the ring positioned at the start of the
// decompressed packet. declared is the payload size the frame announced;
// payloads that cannot fit the scratch ring are fatal, never retried.
func (s *Session) decompress(rb *mcwire.RingBuffer, compressedLen, declared int) (*mcwire.RingBuffer, error) {
	s.inflate.Reset()
	if declared > s.inflate.Free() {
		return nil, fmt.Errorf("%w: declared size %d exceeds scratch capacity", ErrDecompressionFailed, declared)
	}

	src := getCompressedScratch(compressedLen)
	defer putCompressedScratch(src)
	rb.ReadRaw(*src)

	zr, err := zlib.NewReader(bytes.NewReader(*src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer zr.Close()

	if _, err := s.inflate.FillFrom(zr); err != nil {
		if err == mcwire.ErrBufferFull {
			return nil, fmt.Errorf("%w: output exceeds scratch capacity", ErrDecompressionFailed)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	return s.inflate, nil
}
