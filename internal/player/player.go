// Package player tracks the client player's server-authoritative position and
// look angles, fed by position-correction packets.
package player

import (
	"github.com/chewxy/math32"
)

// Relative-flag bits of the position packet: a set bit means the field is a
// delta against the current value rather than an absolute.
const (
	FlagRelativeX     = 0x01
	FlagRelativeY     = 0x02
	FlagRelativeZ     = 0x04
	FlagRelativeYaw   = 0x08
	FlagRelativePitch = 0x10
)

// State is the client player's last known position and orientation. Yaw and
// pitch are stored in degrees as received.
type State struct {
	X, Y, Z    float64
	Yaw, Pitch float32

	Teleports int
}

// ApplyPositionLook applies a server position correction, honoring the
// per-field relative bits.
func (s *State) ApplyPositionLook(x, y, z float64, yaw, pitch float32, flags uint8) {
	if flags&FlagRelativeX != 0 {
		s.X += x
	} else {
		s.X = x
	}
	if flags&FlagRelativeY != 0 {
		s.Y += y
	} else {
		s.Y = y
	}
	if flags&FlagRelativeZ != 0 {
		s.Z += z
	} else {
		s.Z = z
	}
	if flags&FlagRelativeYaw != 0 {
		s.Yaw += yaw
	} else {
		s.Yaw = yaw
	}
	if flags&FlagRelativePitch != 0 {
		s.Pitch += pitch
	} else {
		s.Pitch = pitch
	}
	s.Teleports++
}

// LookRadians returns the camera-space orientation: yaw rotated a quarter turn
// so that zero faces positive x, pitch negated for a y-up right-handed view.
func (s *State) LookRadians() (yaw, pitch float32) {
	return radians(s.Yaw + 90), -radians(s.Pitch)
}

// ChunkPos returns the chunk column the player stands in.
func (s *State) ChunkPos() (x, z int32) {
	return int32(math32.Floor(float32(s.X) / 16)), int32(math32.Floor(float32(s.Z) / 16))
}

func radians(deg float32) float32 {
	return deg * math32.Pi / 180
}
