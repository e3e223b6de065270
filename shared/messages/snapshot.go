package messages

import "github.com/go-gl/mathgl/mgl32"

// Snapshot is the authoritative state of one character after the server
// processed the command stamped Timestamp.
type Snapshot struct {
	Character  uint32 // Network id, carried in the frame header
	Timestamp  float64
	Position   mgl32.Vec3
	MoveVector mgl32.Vec3
}

func (Snapshot) Kind() Kind { return KindSnapshot }

// DivergenceReport is forwarded by clients so divergences show up in the
// server's diagnostics store.
type DivergenceReport struct {
	Character uint32
	Timestamp float64
	Drift     float32
	Corrected float32
	Replayed  uint32
	Digest    uint64 // Hash of the client's reconciled state
}

func (DivergenceReport) Kind() Kind { return KindDivergenceReport }
