// Package movement is the deterministic first-person character step shared
// by the server and the predicting client.
package movement

import (
	"strings"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// Event is a one-shot simulation event consumed by presentation code.
type Event uint8

const (
	EventJump Event = 1 << iota
	EventLand
	EventCrouch
	EventFootstep
)

func (e Event) String() string {
	switch e {
	case EventJump:
		return "jump"
	case EventLand:
		return "land"
	case EventCrouch:
		return "crouch"
	case EventFootstep:
		return "footstep"
	}
	return "unknown"
}

// EventSet is the set of events produced by one step.
type EventSet uint8

func (s EventSet) Has(e Event) bool      { return s&EventSet(e) != 0 }
func (s EventSet) With(e Event) EventSet { return s | EventSet(e) }

func (s EventSet) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, e := range []Event{EventJump, EventLand, EventCrouch, EventFootstep} {
		if s.Has(e) {
			names = append(names, e.String())
		}
	}
	return strings.Join(names, "|")
}

// State is the kinematic state of one character. MoveVector is the only
// carrier of momentum between ticks.
type State struct {
	Position   mgl32.Vec3
	MoveVector mgl32.Vec3
	Yaw        float32 // Degrees
	Pitch      float32 // Degrees

	Grounded            bool
	Jumping             bool
	Crouching           bool
	PreviouslyCrouching bool
	ContactFlags        physics.ContactFlags

	Height    float32 // Hitbox height
	EyeHeight float32 // Camera offset above Position

	Events EventSet // Produced by the step that produced this state
}

// NewState returns a standing, grounded character at a spawn point.
func NewState(position mgl32.Vec3, yaw float32, tuning config.MovementConfig) State {
	return State{
		Position:     position,
		Yaw:          yaw,
		Grounded:     true,
		ContactFlags: physics.CollidedBelow,
		Height:       tuning.StandHeight,
		EyeHeight:    tuning.StandEyeHeight,
	}
}

// Body is the collision body of the state.
func (s State) Body(radius float32) physics.Body {
	return physics.Body{Position: s.Position, Radius: radius, Height: s.Height}
}

// Eye returns the camera position.
func (s State) Eye() mgl32.Vec3 {
	return s.Position.Add(mgl32.Vec3{0, s.EyeHeight, 0})
}
