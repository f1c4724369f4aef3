package protocol

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/CodeDiseaseDev/repolymer/internal/debug"
	"github.com/CodeDiseaseDev/repolymer/pkg/mcwire"
)

func init() {
	register(mcwire.IDKeepAlive, decodeKeepAlive)
	register(mcwire.IDPositionAndLook, decodePositionAndLook)
	register(mcwire.IDChatMessage, decodeChatMessage)
	register(mcwire.IDLoginSuccess, decodeLoginSuccess)
}

// decodeKeepAlive echoes the server's 64-bit id back through the connection
// layer.
func decodeKeepAlive(s *Session, rb *mcwire.RingBuffer) error {
	id := rb.ReadU64()
	debug.Tracef("keep alive %d", id)
	if s.out == nil {
		return nil
	}
	return s.out.SendKeepAlive(id)
}

// decodePositionAndLook applies the server's position correction to the
// player state and confirms the teleport.
func decodePositionAndLook(s *Session, rb *mcwire.RingBuffer) error {
	x := rb.ReadFloat64()
	y := rb.ReadFloat64()
	z := rb.ReadFloat64()
	yaw := rb.ReadFloat32()
	pitch := rb.ReadFloat32()
	flags := rb.ReadU8()

	teleportID, ok := rb.ReadVarInt()
	if !ok {
		return fmt.Errorf("%w: missing teleport id", ErrMalformedPacket)
	}

	if s.player != nil {
		s.player.ApplyPositionLook(x, y, z, yaw, pitch, flags)
	}
	s.log.Debug("position corrected", "x", x, "y", y, "z", z, "teleportID", teleportID)

	if s.out == nil {
		return nil
	}
	return s.out.SendTeleportConfirm(teleportID)
}

// decodeChatMessage reads and logs the raw chat JSON. Chat bookkeeping beyond
// the decode lives outside this core.
func decodeChatMessage(s *Session, rb *mcwire.RingBuffer) error {
	scratch := getStringScratch()
	defer putStringScratch(scratch)

	msg, err := rb.ReadString(*scratch, MaxStringLength)
	if err != nil {
		return fmt.Errorf("chat message: %w", err)
	}
	if len(msg) > 0 {
		s.log.Info("chat", "message", string(msg))
	}
	return nil
}

// decodeLoginSuccess records the profile the server assigned and switches the
// session into play state. The id overlaps with a play-state packet, so it is
// ignored once play has begun.
func decodeLoginSuccess(s *Session, rb *mcwire.RingBuffer) error {
	if s.play {
		return nil
	}

	var raw [16]byte
	rb.ReadRaw(raw[:])
	id, err := uuid.FromBytes(raw[:])
	if err != nil {
		return fmt.Errorf("%w: login success uuid: %v", ErrMalformedPacket, err)
	}

	scratch := getStringScratch()
	defer putStringScratch(scratch)
	name, err := rb.ReadString(*scratch, 16)
	if err != nil {
		return fmt.Errorf("login success: %w", err)
	}

	s.profile.UUID = id
	s.profile.Username = string(name)
	s.play = true
	s.log.Info("login complete", "username", s.profile.Username)
	return nil
}
