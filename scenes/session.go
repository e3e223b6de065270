package scenes

import (
	"errors"
	"fmt"
	"time"

	"github.com/automoto/fpsync/components"
	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/leveldata"
	"github.com/automoto/fpsync/shared/logging"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/netcomponents"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/automoto/fpsync/systems"
	"github.com/automoto/fpsync/tags"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// ErrRejected is returned by Session.Err after the server refused the join.
var ErrRejected = errors.New("join rejected")

// SessionDeps are the collaborators of a Session. Counters, Recorder and
// Events may be nil.
type SessionDeps struct {
	Link     transport.Link
	Sampler  network.Sampler
	Levels   func(name string) (*leveldata.Level, error)
	Counters *diag.Counters
	Recorder diag.Recorder
	Events   systems.EventSink
	Logger   zerolog.Logger
}

// Session is the headless owning client: it joins, predicts the local
// player, reconciles it against snapshots and follows everyone else.
// Tick must be called from a single goroutine; messages may arrive on any.
type Session struct {
	cfg  config.Config
	deps SessionDeps
	log  zerolog.Logger
	warn zerolog.Logger // sampled, for per-message warnings

	inbox chan messages.Message

	ecs        *ecs.ECS
	pipeline   *network.Pipeline
	reconciler *network.Reconciler
	history    *network.History
	accepted   messages.JoinAccepted
	joined     bool
	err        error
	now        time.Time
	snapshots  []messages.Snapshot
}

func NewSession(cfg config.Config, deps SessionDeps) *Session {
	s := &Session{
		cfg:   cfg,
		deps:  deps,
		log:   logging.Component(deps.Logger, "session"),
		inbox: make(chan messages.Message, cfg.Network.SnapshotQueueLimit),
	}
	s.warn = logging.Sampled(s.log)
	deps.Link.OnReceive(s.receive)
	return s
}

// receive queues msg for the next Tick. A full queue drops the message.
func (s *Session) receive(msg messages.Message) {
	select {
	case s.inbox <- msg:
		s.deps.Counters.Inc(diag.MessagesReceived)
	default:
		s.deps.Counters.Inc(diag.MessagesDropped)
		s.warn.Warn().Stringer("kind", msg.Kind()).Msg("inbound queue full, dropping message")
	}
}

// Join asks the server for a character.
func (s *Session) Join(version, playerName string) error {
	req := messages.JoinRequest{Version: version, PlayerName: playerName}
	if err := s.deps.Link.Send(transport.Server, req); err != nil {
		return fmt.Errorf("send join request: %w", err)
	}
	s.deps.Counters.Inc(diag.MessagesSent)
	return nil
}

// Tick handles the messages that arrived since the last call and advances
// the local world by one fixed step.
func (s *Session) Tick(now time.Time) {
	s.now = now
	s.snapshots = s.snapshots[:0]
	s.drain()
	if s.ecs != nil {
		s.ecs.Update()
	}
}

func (s *Session) drain() {
	for {
		select {
		case msg := <-s.inbox:
			s.handle(msg)
		default:
			return
		}
	}
}

func (s *Session) handle(msg messages.Message) {
	switch m := msg.(type) {
	case messages.JoinAccepted:
		if s.joined {
			return
		}
		if err := s.start(m); err != nil {
			s.err = err
			s.log.Error().Err(err).Msg("failed to start session")
		}
	case messages.JoinRejected:
		s.err = fmt.Errorf("%w: %s", ErrRejected, m.Reason)
		s.log.Warn().Str("reason", m.Reason).Msg("join rejected")
	case messages.Snapshot:
		if s.joined {
			s.snapshots = append(s.snapshots, m)
		}
	case messages.CharacterLeft:
		if s.joined && systems.RemoveCharacter(s.ecs.World, m.NetworkID) {
			s.log.Debug().Uint32("character", m.NetworkID).Msg("remote character left")
		}
	default:
		s.log.Debug().Stringer("kind", msg.Kind()).Msg("ignoring unexpected message")
	}
}

// start builds the local world for the accepted join.
func (s *Session) start(acc messages.JoinAccepted) error {
	level, err := s.deps.Levels(acc.Level)
	if err != nil {
		return fmt.Errorf("load level %q: %w", acc.Level, err)
	}

	// the server's pacing wins, both sides must step identically
	if acc.TickRate > 0 {
		s.cfg.Network.TickRate = int(acc.TickRate)
	}
	if acc.SendInterval > 0 {
		s.cfg.Network.SendInterval = time.Duration(acc.SendInterval) * time.Millisecond
	}
	netCfg := s.cfg.Network

	if o, ok := s.deps.Sampler.(network.Orienter); ok {
		o.Orient(acc.SpawnYaw, 0)
	}

	sim := movement.NewSimulator(s.cfg.Movement, physics.NewLevelWorld(level))
	s.history = network.NewHistory(netCfg.HistoryCapacity)
	stamper := network.NewStamper(s.now)
	s.pipeline = network.NewPipeline(netCfg, network.PipelineDeps{
		Simulator: sim,
		History:   s.history,
		Stamper:   stamper,
		Sampler:   s.deps.Sampler,
		Sender:    s.deps.Link,
		Counters:  s.deps.Counters,
		Logger:    logging.Component(s.deps.Logger, "pipeline"),
	})
	s.reconciler = network.NewReconciler(netCfg, network.ReconcilerDeps{
		Simulator: sim,
		History:   s.history,
		Stamper:   stamper,
		Recorder:  s.deps.Recorder,
		Counters:  s.deps.Counters,
		Logger:    logging.Component(s.deps.Logger, "reconcile"),
	})

	world := donburi.NewWorld()
	entity := world.Create(tags.Character, tags.LocalPlayer, netcomponents.Kinematic, netcomponents.Identity, components.LocalPlayer)
	entry := world.Entry(entity)
	netcomponents.Kinematic.SetValue(entry, movement.NewState(acc.Spawn, acc.SpawnYaw, s.cfg.Movement))
	netcomponents.Identity.SetValue(entry, netcomponents.IdentityData{
		NetworkID: acc.NetworkID,
		PlayerUID: acc.PlayerUID,
	})

	clock := func() time.Time { return s.now }
	s.ecs = ecs.NewECS(world)
	s.ecs.AddSystem(systems.NewNetSnapshotSystem(systems.SnapshotDeps{
		Reconciler: s.reconciler,
		Snapshots:  func() []messages.Snapshot { return s.snapshots },
		LocalID:    func() uint32 { return acc.NetworkID },
		Clock:      clock,
		Report:     s.report,
		Tuning:     s.cfg.Movement,
		TweenTime:  float32(netCfg.SendInterval.Seconds()),
		Logger:     s.log,
	}))
	s.ecs.AddSystem(systems.NewNetInputSystem(s.pipeline, clock, s.deps.Events))
	s.ecs.AddSystem(systems.NewNetInterpSystem(netCfg.TickDelta(), netCfg.InterpolationFactor))

	s.accepted = acc
	s.joined = true
	s.log.Info().
		Uint32("network_id", acc.NetworkID).
		Str("uid", acc.PlayerUID).
		Str("server", acc.ServerName).
		Str("level", level.Name).
		Int("tick_rate", netCfg.TickRate).
		Msg("joined")
	return nil
}

func (s *Session) report(r messages.DivergenceReport) {
	if err := s.deps.Link.Send(transport.Server, r); err != nil {
		s.log.Debug().Err(err).Msg("failed to send divergence report")
		return
	}
	s.deps.Counters.Inc(diag.MessagesSent)
}

// Joined reports whether the server accepted the join.
func (s *Session) Joined() bool {
	return s.joined
}

// Accepted returns the server's join reply.
func (s *Session) Accepted() messages.JoinAccepted {
	return s.accepted
}

// Err returns the error that ended the session, if any.
func (s *Session) Err() error {
	return s.err
}

// State returns the local player's current state.
func (s *Session) State() (movement.State, bool) {
	if !s.joined {
		return movement.State{}, false
	}
	entry, ok := tags.LocalPlayer.First(s.ecs.World)
	if !ok {
		return movement.State{}, false
	}
	return *netcomponents.Kinematic.Get(entry), true
}

// Remote returns the state of the proxy for character id.
func (s *Session) Remote(id uint32) (movement.State, bool) {
	if !s.joined || id == s.accepted.NetworkID {
		return movement.State{}, false
	}
	entry, ok := systems.FindCharacter(s.ecs.World, id)
	if !ok {
		return movement.State{}, false
	}
	return *netcomponents.Kinematic.Get(entry), true
}

// RemoteCount returns the number of other characters being followed.
func (s *Session) RemoteCount() int {
	if !s.joined {
		return 0
	}
	n := 0
	tags.RemotePlayer.Each(s.ecs.World, func(*donburi.Entry) { n++ })
	return n
}

// Unacked returns the number of predicted commands not yet acknowledged.
func (s *Session) Unacked() int {
	if s.history == nil {
		return 0
	}
	return s.history.Len()
}

// Counters returns the session's counters.
func (s *Session) Counters() *diag.Counters {
	return s.deps.Counters
}
