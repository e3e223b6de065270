package movement

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// Digest hashes the replicated part of a state bit for bit. Two roles that
// simulated the same commands from the same state produce the same digest.
func Digest(s State) uint64 {
	buf := make([]byte, 0, 40)
	for _, v := range [...]float32{
		s.Position[0], s.Position[1], s.Position[2],
		s.MoveVector[0], s.MoveVector[1], s.MoveVector[2],
		s.Yaw, s.Pitch, s.Height,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	var flags byte
	if s.Grounded {
		flags |= 1
	}
	if s.Jumping {
		flags |= 2
	}
	if s.Crouching {
		flags |= 4
	}
	buf = append(buf, flags, byte(s.ContactFlags))
	return xxh3.Hash(buf)
}
