package movement

import (
	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/go-gl/mathgl/mgl32"
)

// landingStepDelay is how far a landing pushes the next footstep out.
const landingStepDelay = 0.5

// StepCycle paces footsteps from distance travelled. It is presentation
// state: it never feeds back into the simulation and is not replayed.
type StepCycle struct {
	interval        float32
	runstepLengthen float32
	cycle           float32
	next            float32
}

func NewStepCycle(tuning config.MovementConfig) *StepCycle {
	return &StepCycle{
		interval:        tuning.StepInterval,
		runstepLengthen: tuning.RunstepLengthen,
	}
}

// Advance consumes one simulated step and returns the events to present:
// those of the step itself plus EventFootstep when a stride completed on
// the ground.
func (c *StepCycle) Advance(before, after State, cmd messages.Command, speed, dt float32) EventSet {
	events := after.Events
	if events.Has(EventLand) {
		c.next = c.cycle + landingStepDelay
	}

	if dt <= 0 {
		return events
	}
	d := after.Position.Sub(before.Position)
	velocity := mgl32.Vec3{d[0], 0, d[2]}.Len() / dt
	if velocity > 0 && cmd.Axes.Any() {
		stride := speed
		if !cmd.Walk {
			stride *= c.runstepLengthen
		}
		c.cycle += (velocity + stride) * dt
	}

	if c.cycle <= c.next {
		return events
	}
	c.next = c.cycle + c.interval
	if after.Grounded {
		events = events.With(EventFootstep)
	}
	return events
}
