package core

import (
	"sync/atomic"
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// Inbox is the bounded queue of commands waiting for one character's tick.
// The transport goroutine is the only producer and the tick loop the only
// consumer; neither side ever blocks.
type Inbox struct {
	ch          chan messages.Command
	lastMessage atomic.Int64 // UnixNano of the last batch, 0 before any
	dropped     atomic.Int64
}

func NewInbox(limit int) *Inbox {
	if limit < 1 {
		limit = 1
	}
	return &Inbox{ch: make(chan messages.Command, limit)}
}

// Push queues every command of batch in order. Commands that do not fit
// are dropped.
func (q *Inbox) Push(batch messages.CommandBatch, now time.Time) (accepted, dropped int) {
	q.lastMessage.Store(now.UnixNano())
	for _, cmd := range batch.Commands {
		select {
		case q.ch <- cmd:
			accepted++
		default:
			dropped++
		}
	}
	q.dropped.Add(int64(dropped))
	return accepted, dropped
}

// Pop returns the oldest queued command.
func (q *Inbox) Pop() (messages.Command, bool) {
	select {
	case cmd := <-q.ch:
		return cmd, true
	default:
		return messages.Command{}, false
	}
}

func (q *Inbox) Len() int { return len(q.ch) }

// LastMessage is the arrival time of the most recent batch. ok is false
// until the first one arrives.
func (q *Inbox) LastMessage() (t time.Time, ok bool) {
	n := q.lastMessage.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// Dropped is the number of commands refused because the inbox was full.
func (q *Inbox) Dropped() int64 { return q.dropped.Load() }

// AuthorityData is the server-only bookkeeping of one character.
type AuthorityData struct {
	Inbox   *Inbox
	LastAck float64 // Timestamp of the last command simulated
	SendAcc time.Duration
	Paused  bool

	// Last broadcast, for change detection
	Sent         bool
	SentPosition mgl32.Vec3
	SentYaw      float32
	SentPitch    float32
}

var CharacterAuthority = donburi.NewComponentType[AuthorityData]()

// Authority runs the authoritative tick of a character.
type Authority struct {
	sim      *movement.Simulator
	counters *diag.Counters

	staleness    time.Duration
	sendInterval time.Duration
	tickInterval time.Duration
	dt           float32
}

func NewAuthority(cfg config.NetworkConfig, sim *movement.Simulator, counters *diag.Counters) *Authority {
	return &Authority{
		sim:          sim,
		counters:     counters,
		staleness:    cfg.StalenessBound,
		sendInterval: cfg.SendInterval,
		tickInterval: cfg.TickInterval(),
		dt:           cfg.TickDelta(),
	}
}

// Tick consumes at most one command and advances state by one step. When
// the inbox is empty the character idles in place, unless its owner has
// gone quiet for longer than the staleness bound, in which case the tick
// is skipped and ran is false. snap is non-nil when a snapshot is due.
func (a *Authority) Tick(state movement.State, auth *AuthorityData, now time.Time) (next movement.State, snap *messages.Snapshot, ran bool) {
	cmd, ok := auth.Inbox.Pop()
	if !ok {
		last, seen := auth.Inbox.LastMessage()
		if !seen || now.Sub(last) > a.staleness {
			auth.Paused = true
			a.counters.Inc(diag.TicksPaused)
			return state, nil, false
		}
		cmd = messages.IdleCommand(auth.LastAck, state.Crouching)
	}
	auth.Paused = false

	next, _ = a.sim.Simulate(state, cmd, a.dt)
	auth.LastAck = cmd.Timestamp

	auth.SendAcc += a.tickInterval
	if auth.SendAcc < a.sendInterval {
		return next, nil, true
	}
	auth.SendAcc = 0

	if auth.Sent && next.Position == auth.SentPosition &&
		next.Yaw == auth.SentYaw && next.Pitch == auth.SentPitch {
		return next, nil, true
	}
	auth.Sent = true
	auth.SentPosition = next.Position
	auth.SentYaw, auth.SentPitch = next.Yaw, next.Pitch

	return next, &messages.Snapshot{
		Timestamp:  auth.LastAck,
		Position:   next.Position,
		MoveVector: next.MoveVector,
	}, true
}
