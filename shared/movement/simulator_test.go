package movement

import (
	"math/rand/v2"
	"testing"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = float32(0.02)

// newArena is a 40x40 floor at y=0 with a wall at x=[30,31].
func newArena() *physics.World {
	w := physics.NewWorld(cube.Box(0, -1, 0, 40, 20, 40))
	w.AddBox(cube.Box(0, -1, 0, 40, 0, 40))
	w.AddBox(cube.Box(30, 0, 0, 31, 3, 40))
	return w
}

// newPen is a 40x40 floor closed in on all four sides.
func newPen() *physics.World {
	w := physics.NewWorld(cube.Box(-2, -1, -2, 42, 20, 42))
	w.AddBox(cube.Box(0, -1, 0, 40, 0, 40))
	w.AddBox(cube.Box(-1, 0, -1, 0, 3, 41))
	w.AddBox(cube.Box(40, 0, -1, 41, 3, 41))
	w.AddBox(cube.Box(0, 0, -1, 40, 3, 0))
	w.AddBox(cube.Box(0, 0, 40, 40, 3, 41))
	return w
}

func newSim() *Simulator {
	return NewSimulator(config.DefaultMovement(), newArena())
}

func spawn() State {
	return NewState(mgl32.Vec3{10, 0, 10}, 0, config.DefaultMovement())
}

func forward() messages.Command {
	return messages.Command{Axes: netconfig.NewAxes(true, false, false, false), Moved: true}
}

func TestSimulate_ForwardOneTick(t *testing.T) {
	sim := newSim()
	next, flags := sim.Simulate(spawn(), forward(), dt)

	assert.True(t, flags.Below())
	assert.True(t, next.Grounded)
	assert.InDelta(t, 10, next.Position[0], 1e-6)
	assert.InDelta(t, 0, next.Position[1], 1e-6)
	assert.InDelta(t, 10.2, next.Position[2], 1e-5)
	assert.InDelta(t, 10, next.MoveVector[2], 1e-6)
	assert.Equal(t, float32(-10), next.MoveVector[1])
}

func TestSimulate_DiagonalIsNormalized(t *testing.T) {
	sim := newSim()
	cmd := messages.Command{Axes: netconfig.NewAxes(true, false, false, true), Moved: true}
	next, _ := sim.Simulate(spawn(), cmd, dt)

	flat := mgl32.Vec3{next.MoveVector[0], 0, next.MoveVector[2]}
	assert.InDelta(t, 10, flat.Len(), 1e-5)
	assert.InDelta(t, next.MoveVector[0], next.MoveVector[2], 1e-6)

	// opposing intents cancel
	cmd.Axes = netconfig.NewAxes(true, true, true, true)
	next, _ = sim.Simulate(spawn(), cmd, dt)
	assert.Zero(t, next.MoveVector[0])
	assert.Zero(t, next.MoveVector[2])
}

func TestSimulate_GroundDecay(t *testing.T) {
	sim := newSim()
	s := spawn()
	s.MoveVector = mgl32.Vec3{0, -10, 10}

	next, _ := sim.Simulate(s, messages.Command{Walk: true}, dt)
	assert.InDelta(t, 6, next.MoveVector[2], 1e-5)
	next, _ = sim.Simulate(next, messages.Command{Walk: true}, dt)
	assert.InDelta(t, 3.6, next.MoveVector[2], 1e-5)
}

func TestSimulate_SpeedSelection(t *testing.T) {
	tuning := config.DefaultMovement()
	assert.Equal(t, tuning.RunSpeed, Speed(tuning, false, false))
	assert.Equal(t, tuning.WalkSpeed, Speed(tuning, false, true))
	assert.Equal(t, tuning.CrouchSpeed, Speed(tuning, true, true))
	assert.Equal(t, tuning.CrouchSpeed, Speed(tuning, true, false))
}

func TestSimulate_RotationApplied(t *testing.T) {
	sim := newSim()
	cmd := forward()
	cmd.RotationChanged = true
	cmd.Yaw = 90
	cmd.Pitch = -20

	next, _ := sim.Simulate(spawn(), cmd, dt)
	assert.Equal(t, float32(90), next.Yaw)
	assert.Equal(t, float32(-20), next.Pitch)
	// yaw 90 faces +x
	assert.InDelta(t, 10.2, next.Position[0], 1e-5)
	assert.InDelta(t, 10, next.Position[2], 1e-5)

	// without the flag the values are ignored
	cmd.RotationChanged = false
	cmd.Yaw = 180
	after, _ := sim.Simulate(next, cmd, dt)
	assert.Equal(t, float32(90), after.Yaw)
}

func TestSimulate_JumpIsOneShot(t *testing.T) {
	sim := newSim()
	cmd := forward()
	cmd.Jump = true

	s, flags := sim.Simulate(spawn(), cmd, dt)
	assert.True(t, s.Events.Has(EventJump))
	assert.True(t, s.Jumping)
	assert.False(t, s.Grounded)
	assert.False(t, flags.Below())
	assert.Equal(t, float32(10), s.MoveVector[1])

	// holding jump in the air does nothing more
	s, _ = sim.Simulate(s, cmd, dt)
	assert.False(t, s.Events.Has(EventJump))
	assert.InDelta(t, 10-9.81*2*0.02, s.MoveVector[1], 1e-5)

	landed := false
	for i := 0; i < 200 && !landed; i++ {
		s, _ = sim.Simulate(s, forward(), dt)
		landed = s.Events.Has(EventLand)
	}
	require.True(t, landed)
	assert.True(t, s.Grounded)
	assert.False(t, s.Jumping)
	assert.Zero(t, s.MoveVector[1])
	assert.InDelta(t, 0, s.Position[1], 1e-5)
}

func TestSimulate_CrouchTransition(t *testing.T) {
	sim := newSim()
	tuning := sim.Tuning
	crouch := messages.Command{Crouch: true, Walk: true}

	s, _ := sim.Simulate(spawn(), crouch, dt)
	assert.True(t, s.Events.Has(EventCrouch))
	assert.Equal(t, tuning.CrouchHeight, s.Height)
	assert.Equal(t, tuning.CrouchEyeHeight, s.EyeHeight)

	s, _ = sim.Simulate(s, crouch, dt)
	assert.False(t, s.Events.Has(EventCrouch))
	assert.Equal(t, tuning.CrouchHeight, s.Height)

	s, _ = sim.Simulate(s, messages.Command{Walk: true}, dt)
	assert.True(t, s.Events.Has(EventCrouch))
	assert.Equal(t, tuning.StandHeight, s.Height)
	assert.Equal(t, tuning.StandEyeHeight, s.EyeHeight)
}

func airborne() State {
	s := spawn()
	s.Position = mgl32.Vec3{10, 15, 10}
	s.Grounded = false
	s.ContactFlags = physics.CollidedNone
	return s
}

func TestSimulate_AirStrafe(t *testing.T) {
	sim := newSim()
	right := messages.Command{Axes: netconfig.NewAxes(false, false, false, true), Moved: true}

	s := airborne()
	for i := 0; i < 10; i++ {
		s, _ = sim.Simulate(s, right, dt)
	}
	assert.Equal(t, float32(5), s.MoveVector[0])

	// at the ceiling, same-direction strafe is refused
	s, _ = sim.Simulate(s, right, dt)
	assert.Equal(t, float32(5), s.MoveVector[0])

	// opposing strafe is always admitted
	left := messages.Command{Axes: netconfig.NewAxes(false, true, false, false), Moved: true}
	s, _ = sim.Simulate(s, left, dt)
	assert.Equal(t, float32(4.5), s.MoveVector[0])

	// no intent leaves momentum alone
	s, _ = sim.Simulate(s, messages.Command{}, dt)
	assert.Equal(t, float32(4.5), s.MoveVector[0])
}

func TestSimulate_WalkOffEdgeZeroesVertical(t *testing.T) {
	sim := newSim()
	s := spawn()
	s.Position = mgl32.Vec3{10, 5, 10}

	next, flags := sim.Simulate(s, messages.Command{Walk: true}, dt)
	assert.False(t, flags.Below())
	assert.False(t, next.Grounded)
	assert.Zero(t, next.MoveVector[1])
}

func TestSimulate_Wall(t *testing.T) {
	sim := newSim()
	s := spawn()
	s.Position = mgl32.Vec3{29.4, 0, 10}
	cmd := forward()
	cmd.RotationChanged = true
	cmd.Yaw = 90

	next, flags := sim.Simulate(s, cmd, dt)
	assert.True(t, flags.Sides())
	assert.True(t, flags.Below())
	assert.InDelta(t, 29.5, next.Position[0], 1e-5)
}

func TestSimulate_ProjectOnFlatGroundIsNoop(t *testing.T) {
	plain := newSim()
	projected := newSim()
	projected.Tuning.ProjectOnGround = true

	a, _ := plain.Simulate(spawn(), forward(), dt)
	b, _ := projected.Simulate(spawn(), forward(), dt)
	assert.Equal(t, a.Position, b.Position)
}

func randomCommand(r *rand.Rand) messages.Command {
	cmd := messages.Command{
		Axes:   netconfig.NewAxes(r.IntN(2) == 0, r.IntN(2) == 0, r.IntN(2) == 0, r.IntN(2) == 0),
		Walk:   r.IntN(2) == 0,
		Crouch: r.IntN(4) == 0,
		Jump:   r.IntN(20) == 0,
	}
	if r.IntN(3) == 0 {
		cmd.RotationChanged = true
		cmd.Yaw = r.Float32()*360 - 180
		cmd.Pitch = r.Float32()*170 - 85
	}
	return cmd
}

func TestSimulate_Deterministic(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		r := rand.New(rand.NewPCG(seed, seed))
		cmds := make([]messages.Command, 500)
		for i := range cmds {
			cmds[i] = randomCommand(r)
		}

		tuning := config.DefaultMovement()
		a := NewSimulator(tuning, newPen())
		b := NewSimulator(tuning, newPen())
		sa := NewState(mgl32.Vec3{20, 0, 20}, 0, tuning)
		sb := sa
		for i, cmd := range cmds {
			sa, _ = a.Simulate(sa, cmd, dt)
			sb, _ = b.Simulate(sb, cmd, dt)
			require.Equal(t, sa, sb, "seed %d step %d", seed, i)
			require.Equal(t, Digest(sa), Digest(sb))
		}
	}
}

func TestDigest_DiffersOnAnyBit(t *testing.T) {
	s := spawn()
	moved := s
	moved.Position[0] = 10.001
	assert.NotEqual(t, Digest(s), Digest(moved))

	crouched := s
	crouched.Crouching = true
	assert.NotEqual(t, Digest(s), Digest(crouched))
	assert.Equal(t, Digest(s), Digest(spawn()))
}

func TestEventSet_String(t *testing.T) {
	assert.Equal(t, "none", EventSet(0).String())
	assert.Equal(t, "jump|crouch", EventSet(0).With(EventCrouch).With(EventJump).String())
}
