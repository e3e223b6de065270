package movement

import (
	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/gamemath"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Simulator advances a State by one command. It holds no per-character
// data, so one Simulator can step every character sharing an oracle.
type Simulator struct {
	Tuning config.MovementConfig
	Oracle physics.Oracle
}

func NewSimulator(tuning config.MovementConfig, oracle physics.Oracle) *Simulator {
	return &Simulator{Tuning: tuning, Oracle: oracle}
}

// Speed returns the horizontal speed selected by the crouch and walk flags.
func Speed(tuning config.MovementConfig, crouch, walk bool) float32 {
	switch {
	case crouch:
		return tuning.CrouchSpeed
	case walk:
		return tuning.WalkSpeed
	default:
		return tuning.RunSpeed
	}
}

// Basis returns the horizontal forward and right unit vectors for a yaw in
// degrees.
func Basis(yaw float32) (forward, right mgl32.Vec3) {
	sin, cos := math32.Sincos(mgl32.DegToRad(yaw))
	return mgl32.Vec3{sin, 0, cos}, mgl32.Vec3{cos, 0, -sin}
}

// Simulate runs one fixed step. The result depends only on state, cmd, dt
// and the oracle's geometry.
func (s *Simulator) Simulate(state State, cmd messages.Command, dt float32) (State, physics.ContactFlags) {
	t := s.Tuning
	next := state
	next.Events = 0

	if cmd.RotationChanged {
		next.Yaw = cmd.Yaw
		next.Pitch = cmd.Pitch
	}

	next.Crouching = cmd.Crouch
	speed := Speed(t, cmd.Crouch, cmd.Walk)
	if next.Crouching != next.PreviouslyCrouching {
		if next.Crouching {
			next.Height, next.EyeHeight = t.CrouchHeight, t.CrouchEyeHeight
		} else {
			next.Height, next.EyeHeight = t.StandHeight, t.StandEyeHeight
		}
		next.Events = next.Events.With(EventCrouch)
	}
	next.PreviouslyCrouching = next.Crouching

	vertical, horizontal := gamemath.DesiredMove(cmd.Axes)
	forward, right := Basis(next.Yaw)
	mv := next.MoveVector
	flat := mgl32.Vec3{mv[0], 0, mv[2]}
	along, across := flat.Dot(forward), flat.Dot(right)

	if state.Grounded {
		along = gamemath.GroundAxis(along, vertical, speed, t.SlowdownFactor)
		across = gamemath.GroundAxis(across, horizontal, speed, t.SlowdownFactor)
		flat = forward.Mul(along).Add(right.Mul(across))
		mv[0], mv[2] = flat[0], flat[2]

		mv[1] = -t.StickToGroundForce
		if cmd.Jump {
			mv[1] = t.JumpSpeed
			next.Jumping = true
			next.Events = next.Events.With(EventJump)
		}
	} else {
		if gamemath.AdmitStrafe(along, vertical, t.StrafeCeiling) {
			mv = mv.Add(forward.Mul(vertical * t.StrafeSpeed))
		}
		if gamemath.AdmitStrafe(across, horizontal, t.StrafeCeiling) {
			mv = mv.Add(right.Mul(horizontal * t.StrafeSpeed))
		}
		mv[1] += t.Gravity * t.GravityMultiplier * dt
	}

	motion := mv.Mul(dt)
	if t.ProjectOnGround && state.Grounded {
		motion = s.projectOnGround(next, motion)
	}

	pos, flags := s.Oracle.MoveAndCollide(next.Body(t.Radius), motion)
	next.Position = pos
	next.ContactFlags = flags
	next.Grounded = flags.Below()

	switch {
	case next.Grounded && !state.Grounded:
		mv[1] = 0
		next.Jumping = false
		next.Events = next.Events.With(EventLand)
	case !next.Grounded && state.Grounded && !next.Jumping:
		mv[1] = 0
	case flags.Above() && mv[1] > 0:
		mv[1] = 0
	}
	next.MoveVector = mv

	return next, flags
}

// projectOnGround bends the horizontal part of motion onto the surface under
// the character. Vertical motion is left alone.
func (s *Simulator) projectOnGround(state State, motion mgl32.Vec3) mgl32.Vec3 {
	half := state.Height / 2
	origin := state.Position.Add(mgl32.Vec3{0, half, 0})
	hit, ok := s.Oracle.SphereCastDown(origin, s.Tuning.Radius, half)
	if !ok {
		return motion
	}
	flat := mgl32.Vec3{motion[0], 0, motion[2]}
	projected := flat.Sub(hit.Normal.Mul(flat.Dot(hit.Normal)))
	return mgl32.Vec3{projected[0], projected[1] + motion[1], projected[2]}
}
