package network

import (
	"math/rand/v2"
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/netconfig"
)

// Sample is one tick of decoded device state.
type Sample struct {
	Axes   netconfig.Axes
	Walk   bool
	Crouch bool
	Jump   bool    // Button held; the pipeline detects the press edge
	Yaw    float32 // Degrees, absolute
	Pitch  float32 // Degrees, absolute
}

// Sampler produces the input for each tick.
type Sampler interface {
	Sample(dt time.Duration) Sample
}

// Orienter is implemented by samplers that need the starting orientation
// of the character they drive.
type Orienter interface {
	Orient(yaw, pitch float32)
}

// RandomSampler generates load-test input: it holds a random combination
// of axes, walk and crouch for a random duration, then rolls a new one.
type RandomSampler struct {
	minReroll time.Duration
	maxReroll time.Duration
	rng       *rand.Rand

	elapsed time.Duration
	hold    time.Duration
	current Sample
}

func NewRandomSampler(cfg config.SimInputConfig) *RandomSampler {
	return &RandomSampler{
		minReroll: cfg.MinReroll,
		maxReroll: cfg.MaxReroll,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
	}
}

func (s *RandomSampler) Sample(dt time.Duration) Sample {
	s.elapsed += dt
	if s.elapsed < s.hold {
		return s.current
	}
	s.elapsed = 0
	s.hold = s.minReroll
	if spread := s.maxReroll - s.minReroll; spread > 0 {
		s.hold += time.Duration(s.rng.Int64N(int64(spread)))
	}

	horizontal := s.rng.Float32()*2 - 1
	vertical := s.rng.Float32()*2 - 1
	s.current.Axes = netconfig.NewAxes(vertical > 0, horizontal < 0, vertical < 0, horizontal > 0)
	s.current.Walk = s.rng.Float32() <= 0.5
	s.current.Crouch = s.rng.Float32() > 0.5
	return s.current
}

// Orient sets the yaw and pitch every sample carries.
func (s *RandomSampler) Orient(yaw, pitch float32) {
	s.current.Yaw, s.current.Pitch = yaw, pitch
}

// ScriptedSampler plays back a fixed list of samples, one per tick. Once
// the script runs out it keeps returning an idle sample that holds the
// last orientation.
type ScriptedSampler struct {
	script []Sample
	next   int
	last   Sample
}

func NewScriptedSampler(script ...Sample) *ScriptedSampler {
	return &ScriptedSampler{script: script}
}

func (s *ScriptedSampler) Sample(time.Duration) Sample {
	if s.next >= len(s.script) {
		return Sample{Yaw: s.last.Yaw, Pitch: s.last.Pitch}
	}
	s.last = s.script[s.next]
	s.next++
	return s.last
}

// Orient sets the orientation held once the script has run out.
func (s *ScriptedSampler) Orient(yaw, pitch float32) {
	s.last.Yaw, s.last.Pitch = yaw, pitch
}

// Done reports whether the script has been played out.
func (s *ScriptedSampler) Done() bool {
	return s.next >= len(s.script)
}

// Repeat returns n copies of sample, for building scripts.
func Repeat(sample Sample, n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = sample
	}
	return out
}
