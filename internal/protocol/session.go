package protocol

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CodeDiseaseDev/repolymer/internal/debug"
	"github.com/CodeDiseaseDev/repolymer/internal/player"
	"github.com/CodeDiseaseDev/repolymer/internal/world"
	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

// InflateBufferSize is the capacity of the decompression scratch ring, sized
// to the worst-case expansion the client expects to encounter (a full chunk
// column with paletteless sections).
const InflateBufferSize = 65536 * 32

// Outbound is the connection layer's reply surface. The decode path reads the
// relevant ids and asks the connection to answer; the wire format of the
// replies belongs to the connection layer.
type Outbound interface {
	SendKeepAlive(id uint64) error
	SendTeleportConfirm(id uint64) error
}

// decodeFunc decodes one packet body. The read cursor of rb sits just past the
// packet id; the dispatcher forces the cursor to the frame end afterwards, so
// a decoder only has to consume what it understands.
type decodeFunc func(s *Session, rb *mcwire.RingBuffer) error

// registry maps packet ids to decoders. Decoder files register themselves in
// init, keyed by clientbound id.
var registry = map[uint64]decodeFunc{}

func register(id uint64, fn decodeFunc) {
	registry[id] = fn
}

// Session holds the per-connection decode state: the compression flag, the
// decompression scratch ring, and the sinks decoded data flows into. It is
// owned and driven by a single goroutine; see the concurrency notes on
// world.Cache.
type Session struct {
	log    *slog.Logger
	world  *world.Cache
	player *player.State
	out    Outbound

	compression bool
	threshold   int
	inflate     *mcwire.RingBuffer

	// play flips once login completes; the login-state ids (LoginSuccess,
	// SetCompression) overlap with play-state ids and must not be decoded as
	// login packets afterwards.
	play bool

	profile Profile
}

// Profile is the identity the server assigned at login.
type Profile struct {
	UUID     uuid.UUID
	Username string
}

// NewSession creates a session decoding into cache and st, replying through
// out.
func NewSession(log *slog.Logger, cache *world.Cache, st *player.State, out Outbound) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		log:     log,
		world:   cache,
		player:  st,
		out:     out,
		inflate: mcwire.NewRingBuffer(InflateBufferSize),
	}
}

// CompressionEnabled reports whether the set-compression transition happened.
// It never reverts for the connection's lifetime.
func (s *Session) CompressionEnabled() bool { return s.compression }

// Profile returns the login identity, valid once play state is reached.
func (s *Session) Profile() Profile { return s.profile }

// World returns the chunk cache the session decodes into.
func (s *Session) World() *world.Cache { return s.world }

// Drain processes every fully-buffered frame in rb. Running out of complete
// frames is not an error: the cursor is rolled back to the last frame boundary
// and processing resumes on the next call, after the transport has appended
// more bytes. Any returned error is fatal to the connection.
func (s *Session) Drain(rb *mcwire.RingBuffer) error {
	for rb.Used() > 0 {
		snapshot := rb.Snapshot()

		length, ok := rb.ReadVarInt()
		if !ok {
			return nil
		}
		if uint64(rb.Used()) < length {
			rb.Restore(snapshot)
			return nil
		}

		// Exact cursor position after this frame. Set unconditionally after
		// dispatch so an unrecognized or partially-decoded packet never
		// desynchronizes the stream.
		target := (rb.ReadOffset() + int(length)) % rb.Cap()

		src := rb
		if s.compression {
			declared, ok := rb.ReadVarInt()
			if !ok {
				return fmt.Errorf("%w: missing payload size at offset %d", ErrMalformedPacket, snapshot)
			}
			if declared > 0 {
				compressedLen := int(length) - mcwire.VarIntSize(declared)
				if compressedLen < 0 {
					return fmt.Errorf("%w: frame shorter than its payload size prefix", ErrMalformedPacket)
				}
				view, err := s.decompress(rb, compressedLen, int(declared))
				if err != nil {
					return err
				}
				rb.SetReadOffset(target)
				src = view
			}
		}

		id, ok := src.ReadVarInt()
		if !ok {
			return fmt.Errorf("%w: missing packet id at offset %d", ErrMalformedPacket, snapshot)
		}

		if fn, known := registry[id]; known {
			if err := fn(s, src); err != nil {
				return fmt.Errorf("packet 0x%02X (%s) at offset %d: %w",
					id, mcwire.PacketName(id), snapshot, err)
			}
		} else {
			debug.Tracef("skipping packet 0x%02X (%d bytes)", id, length)
		}

		rb.SetReadOffset(target)
	}
	return nil
}
