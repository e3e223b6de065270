package movement

import (
	"testing"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/stretchr/testify/assert"
)

func TestStepCycle_RunningCadence(t *testing.T) {
	tuning := config.DefaultMovement()
	sim := newSim()
	steps := NewStepCycle(tuning)
	cmd := forward()
	speed := Speed(tuning, cmd.Crouch, cmd.Walk)

	s := spawn()
	var footsteps []int
	for i := 1; i <= 16; i++ {
		next, _ := sim.Simulate(s, cmd, dt)
		if steps.Advance(s, next, cmd, speed, dt).Has(EventFootstep) {
			footsteps = append(footsteps, i)
		}
		s = next
	}
	// 0.34 of cycle per tick against an interval of 5
	assert.Equal(t, []int{1, 16}, footsteps)
}

func TestStepCycle_StandingStill(t *testing.T) {
	tuning := config.DefaultMovement()
	sim := newSim()
	steps := NewStepCycle(tuning)

	s := spawn()
	idle := forward()
	idle.Axes = netconfig.Axes{}
	for i := 0; i < 50; i++ {
		next, _ := sim.Simulate(s, idle, dt)
		assert.False(t, steps.Advance(s, next, idle, tuning.RunSpeed, dt).Has(EventFootstep))
		s = next
	}
}

func TestStepCycle_PassesStepEvents(t *testing.T) {
	steps := NewStepCycle(config.DefaultMovement())
	after := spawn()
	after.Events = EventSet(0).With(EventLand)

	events := steps.Advance(spawn(), after, forward(), 10, dt)
	assert.True(t, events.Has(EventLand))
	assert.False(t, events.Has(EventFootstep))
}
