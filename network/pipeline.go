package network

import (
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/rs/zerolog"
)

// TickResult describes what one pipeline tick did.
type TickResult struct {
	Command     messages.Command
	Significant bool
	Flushed     int // Commands sent this tick, 0 when nothing was sent
	Events      movement.EventSet
}

// Pipeline turns sampled input into predicted movement and batched
// commands for the owning client.
type Pipeline struct {
	sim      *movement.Simulator
	history  *History
	stamper  *Stamper
	sampler  Sampler
	sender   transport.Sender
	steps    *movement.StepCycle
	counters *diag.Counters
	log      zerolog.Logger

	prediction   bool
	sendInterval time.Duration
	tickInterval time.Duration
	dt           float32

	pending      []messages.Command
	acc          time.Duration
	prevJumpHeld bool
}

// PipelineDeps are the collaborators a Pipeline drives.
type PipelineDeps struct {
	Simulator *movement.Simulator
	History   *History
	Stamper   *Stamper
	Sampler   Sampler
	Sender    transport.Sender
	Counters  *diag.Counters
	Logger    zerolog.Logger
}

func NewPipeline(cfg config.NetworkConfig, deps PipelineDeps) *Pipeline {
	return &Pipeline{
		sim:          deps.Simulator,
		history:      deps.History,
		stamper:      deps.Stamper,
		sampler:      deps.Sampler,
		sender:       deps.Sender,
		steps:        movement.NewStepCycle(deps.Simulator.Tuning),
		counters:     deps.Counters,
		log:          deps.Logger,
		prediction:   cfg.Prediction,
		sendInterval: cfg.SendInterval,
		tickInterval: cfg.TickInterval(),
		dt:           cfg.TickDelta(),
	}
}

// Tick samples input, predicts, records and batches one command, and sends
// the batch when the send interval has elapsed. It returns the new local
// state.
func (p *Pipeline) Tick(now time.Time, state movement.State) (movement.State, TickResult) {
	sample := p.sampler.Sample(p.tickInterval)

	jumpEdge := sample.Jump && !p.prevJumpHeld && state.Grounded
	p.prevJumpHeld = sample.Jump
	crouchFlip := sample.Crouch != state.Crouching
	rotated := sample.Yaw != state.Yaw || sample.Pitch != state.Pitch

	cmd := messages.Command{
		Axes:            sample.Axes,
		Walk:            sample.Walk,
		Crouch:          sample.Crouch,
		Jump:            jumpEdge,
		RotationChanged: rotated,
		Yaw:             sample.Yaw,
		Pitch:           sample.Pitch,
	}

	before := state
	after := state
	after.Events = 0
	if p.prediction {
		after, _ = p.sim.Simulate(state, cmd, p.dt)
	} else {
		// without prediction only the orientation and crouch state are
		// tracked locally
		after.Yaw, after.Pitch = sample.Yaw, sample.Pitch
		after.Crouching = sample.Crouch
	}

	moved := sample.Axes.Any() || after.Position != before.Position
	cmd.Moved = moved

	res := TickResult{Significant: moved || jumpEdge || crouchFlip || rotated}
	if res.Significant {
		cmd.Timestamp = p.stamper.Stamp(now)
		p.pending = append(p.pending, cmd)
		evicted := p.history.Push(HistoryEntry{
			Command:        cmd,
			Before:         before,
			FlagsBefore:    before.ContactFlags,
			PredictedAfter: after.Position,
		})
		p.counters.Add(diag.HistoryEvicted, int64(evicted))
	}
	res.Command = cmd

	speed := movement.Speed(p.sim.Tuning, cmd.Crouch, cmd.Walk)
	res.Events = p.steps.Advance(before, after, cmd, speed, p.dt)

	p.acc += p.tickInterval
	if p.acc >= p.sendInterval {
		p.acc = 0
		res.Flushed = p.flush()
	}
	return after, res
}

// Pending returns the number of commands waiting for the next flush.
func (p *Pipeline) Pending() int {
	return len(p.pending)
}

func (p *Pipeline) flush() int {
	if len(p.pending) == 0 {
		return 0
	}
	batch := messages.CommandBatch{Commands: p.pending}
	p.pending = nil

	if err := p.sender.Send(transport.Server, batch); err != nil {
		p.log.Warn().Err(err).Int("commands", len(batch.Commands)).Msg("failed to send command batch")
		return 0
	}
	p.counters.Inc(diag.MessagesSent)
	p.counters.Add(diag.CommandsSent, int64(len(batch.Commands)))
	return len(batch.Commands)
}
