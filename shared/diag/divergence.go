package diag

import (
	"fmt"
	"time"

	"github.com/automoto/fpsync/shared/messages"
	"github.com/rs/zerolog"
)

// Kind says which measurement crossed the threshold.
type Kind string

const (
	// KindDrift is the distance between the acknowledged authoritative
	// position and what the client predicted for the same command.
	KindDrift Kind = "drift"
	// KindCorrection is how far reconciliation moved the predicted position.
	KindCorrection Kind = "correction"
)

// Divergence is one recorded prediction mismatch.
type Divergence struct {
	Character uint32
	Kind      Kind
	Timestamp float64 // Acknowledged command timestamp
	Magnitude float32
	Replayed  int
	Digest    uint64 // Hash of the reconciled state, 0 if not measured
	Source    string // Role that measured it
	At        time.Time
}

// DigestHex formats the state digest as 16 hex digits, or "" when unset.
func (d Divergence) DigestHex() string {
	if d.Digest == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", d.Digest)
}

// Recorder receives divergences as they are measured.
type Recorder interface {
	RecordDivergence(d Divergence)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Divergence)

func (f RecorderFunc) RecordDivergence(d Divergence) { f(d) }

// Multi fans a divergence out to several recorders.
type Multi []Recorder

func (m Multi) RecordDivergence(d Divergence) {
	for _, r := range m {
		if r != nil {
			r.RecordDivergence(d)
		}
	}
}

// LogRecorder writes each divergence as a warning.
type LogRecorder struct {
	Logger zerolog.Logger
}

func (r LogRecorder) RecordDivergence(d Divergence) {
	r.Logger.Warn().
		Uint32("character", d.Character).
		Str("kind", string(d.Kind)).
		Float64("ack", d.Timestamp).
		Float32("magnitude", d.Magnitude).
		Int("replayed", d.Replayed).
		Str("digest", d.DigestHex()).
		Str("source", d.Source).
		Msg("prediction diverged")
}

// FromReport expands a client report into its divergence records. Either
// measurement may be absent.
func FromReport(r messages.DivergenceReport, at time.Time) []Divergence {
	var out []Divergence
	if r.Drift > 0 {
		out = append(out, Divergence{
			Character: r.Character, Kind: KindDrift, Timestamp: r.Timestamp,
			Magnitude: r.Drift, Replayed: int(r.Replayed), Digest: r.Digest, Source: "client", At: at,
		})
	}
	if r.Corrected > 0 {
		out = append(out, Divergence{
			Character: r.Character, Kind: KindCorrection, Timestamp: r.Timestamp,
			Magnitude: r.Corrected, Replayed: int(r.Replayed), Digest: r.Digest, Source: "client", At: at,
		})
	}
	return out
}
