package scenes

import (
	"fmt"
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/server/core"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/leveldata"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/rs/zerolog"
)

// HarnessOptions configure an in-process server and its headless clients.
type HarnessOptions struct {
	Clients  int
	Link     transport.LoopbackOptions // Seed is offset per client
	Sampler  func(i int) network.Sampler
	Start    time.Time
	Recorder diag.Recorder // Server side, may be nil
	Logger   zerolog.Logger
}

// Harness runs one server and several sessions over simulated links on a
// shared fake clock. Nothing runs between calls to Step.
type Harness struct {
	Server   *core.Server
	Sessions []*Session

	conns []*core.Conn
	links []*transport.Loopback
	now   time.Time
	tick  time.Duration
	ticks int
}

// NewHarness builds the server for level and one session per client.
func NewHarness(cfg config.Config, level *leveldata.Level, opts HarnessOptions) (*Harness, error) {
	h := &Harness{now: opts.Start, tick: cfg.Network.TickInterval()}

	serverCounters, err := diag.NewCounters("server")
	if err != nil {
		return nil, err
	}
	h.Server = core.NewServer(cfg, core.NewServerLevel(level), core.ServerDeps{
		Counters: serverCounters,
		Recorder: opts.Recorder,
		Clock:    h.Now,
		Logger:   opts.Logger,
	})

	levels := func(name string) (*leveldata.Level, error) {
		if name != level.Name {
			return nil, fmt.Errorf("unknown level %q", name)
		}
		return level, nil
	}

	for i := 0; i < opts.Clients; i++ {
		linkOpts := opts.Link
		linkOpts.Seed += uint64(i)
		loop := transport.NewLoopback(linkOpts, h.now)
		h.links = append(h.links, loop)
		h.conns = append(h.conns, h.Server.AcceptLink(loop.End(transport.Server)))

		counters, err := diag.NewCounters("client")
		if err != nil {
			return nil, err
		}
		h.Sessions = append(h.Sessions, NewSession(cfg, SessionDeps{
			Link:     loop.End(transport.Client),
			Sampler:  opts.Sampler(i),
			Levels:   levels,
			Counters: counters,
			Logger:   opts.Logger.With().Int("client", i).Logger(),
		}))
	}
	return h, nil
}

// Now returns the harness clock.
func (h *Harness) Now() time.Time {
	return h.now
}

// Ticks returns the number of steps taken.
func (h *Harness) Ticks() int {
	return h.ticks
}

// Join sends every session's join request and steps until each one is
// accepted or rejected, giving up after maxTicks.
func (h *Harness) Join(version string, maxTicks int) error {
	for i, s := range h.Sessions {
		if err := s.Join(version, fmt.Sprintf("bot-%d", i)); err != nil {
			return err
		}
	}
	for n := 0; n < maxTicks; n++ {
		h.Step()
		if h.settled() {
			return nil
		}
	}
	return fmt.Errorf("sessions did not join within %d ticks", maxTicks)
}

func (h *Harness) settled() bool {
	for _, s := range h.Sessions {
		if !s.Joined() && s.Err() == nil {
			return false
		}
	}
	return true
}

// Step advances the clock by one tick: due frames reach the server, the
// server ticks, its replies are delivered and every session ticks.
func (h *Harness) Step() {
	h.now = h.now.Add(h.tick)
	h.ticks++
	h.pump()
	h.Server.Tick(h.now)
	h.pump()
	for _, s := range h.Sessions {
		s.Tick(h.now)
	}
}

// Run steps n times.
func (h *Harness) Run(n int) {
	for i := 0; i < n; i++ {
		h.Step()
	}
}

// Leave disconnects client i from the server.
func (h *Harness) Leave(i int) {
	h.conns[i].Close()
}

// Conn returns the server side of client i.
func (h *Harness) Conn(i int) *core.Conn {
	return h.conns[i]
}

// LinkDropped returns the frames lost on client i's link.
func (h *Harness) LinkDropped(i int) int {
	return h.links[i].Dropped()
}

func (h *Harness) pump() {
	for _, l := range h.links {
		l.Pump(h.now)
	}
}
