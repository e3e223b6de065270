package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/logging"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/netcomponents"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/automoto/fpsync/tags"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
)

// ServerDeps are the optional collaborators of a Server.
type ServerDeps struct {
	Counters *diag.Counters
	Recorder diag.Recorder // Receives divergences reported by clients
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// Server owns the authoritative world of characters and their connections.
type Server struct {
	cfg       config.Config
	world     donburi.World
	level     *ServerLevel
	sim       *movement.Simulator
	authority *Authority
	counters  *diag.Counters
	recorder  diag.Recorder
	clock     func() time.Time
	log       zerolog.Logger

	mu      sync.Mutex
	conns   map[uint32]*Conn // Joined connections by network id
	joins   []*Conn
	leaves  []*Conn
	nextID  uint32
	spawned int
}

// NewServer creates a server simulating characters in level.
func NewServer(cfg config.Config, level *ServerLevel, deps ServerDeps) *Server {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	sim := movement.NewSimulator(cfg.Movement, level.World)
	return &Server{
		cfg:       cfg,
		world:     donburi.NewWorld(),
		level:     level,
		sim:       sim,
		authority: NewAuthority(cfg.Network, sim, deps.Counters),
		counters:  deps.Counters,
		recorder:  deps.Recorder,
		clock:     clock,
		log:       logging.Component(deps.Logger, "server"),
		conns:     make(map[uint32]*Conn),
		nextID:    1,
	}
}

// Conn is one client's connection to the server. Its methods may be called
// from transport goroutines; world changes are deferred to the next Tick.
type Conn struct {
	server *Server
	peer   transport.Sender
	inbox  *Inbox

	// guarded by server.mu
	id      uint32
	name    string
	pending bool
	closed  bool
	entity  donburi.Entity
}

// Accept registers a connection that sends through peer. Messages from it
// are passed to Conn.Handle.
func (s *Server) Accept(peer transport.Sender) *Conn {
	return &Conn{
		server: s,
		peer:   peer,
		inbox:  NewInbox(s.cfg.Network.InboundQueueLimit),
	}
}

// AcceptLink accepts a connection over link and routes its messages.
func (s *Server) AcceptLink(link transport.Link) *Conn {
	c := s.Accept(link)
	link.OnReceive(func(msg messages.Message) {
		c.Handle(msg, s.clock())
	})
	return c
}

// ID is the network id assigned on join, 0 before.
func (c *Conn) ID() uint32 {
	c.server.mu.Lock()
	defer c.server.mu.Unlock()
	return c.id
}

// Handle processes one message from the client.
func (c *Conn) Handle(msg messages.Message, now time.Time) {
	s := c.server
	s.counters.Inc(diag.MessagesReceived)

	switch m := msg.(type) {
	case messages.JoinRequest:
		c.join(m)
	case messages.CommandBatch:
		s.counters.Add(diag.CommandsReceived, int64(len(m.Commands)))
		_, dropped := c.inbox.Push(m, now)
		if dropped > 0 {
			s.counters.Add(diag.CommandsDropped, int64(dropped))
		}
	case messages.DivergenceReport:
		s.mu.Lock()
		m.Character = c.id
		s.mu.Unlock()
		if s.recorder != nil {
			for _, d := range diag.FromReport(m, now) {
				s.recorder.RecordDivergence(d)
			}
		}
	default:
		s.log.Debug().Stringer("kind", msg.Kind()).Msg("ignoring unexpected message")
	}
}

func (c *Conn) join(req messages.JoinRequest) {
	s := c.server
	reject := func(reason string) {
		s.log.Info().Str("player", req.PlayerName).Str("reason", reason).Msg("join rejected")
		if err := c.peer.Send(transport.Client, messages.JoinRejected{Reason: reason}); err != nil {
			s.log.Debug().Err(err).Msg("failed to send join rejection")
		}
	}

	if v := s.cfg.Server.Version; v != "" && req.Version != v {
		reject(fmt.Sprintf("version mismatch: server %s, client %s", v, req.Version))
		return
	}

	s.mu.Lock()
	if c.pending || c.id != 0 || c.closed {
		s.mu.Unlock()
		return
	}
	if limit := s.cfg.Server.MaxPlayers; limit > 0 && len(s.conns)+len(s.joins) >= limit {
		s.mu.Unlock()
		reject("server full")
		return
	}
	c.name = req.PlayerName
	c.pending = true
	s.joins = append(s.joins, c)
	s.mu.Unlock()
}

// Close removes the connection's character on the next Tick.
func (c *Conn) Close() {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	s.leaves = append(s.leaves, c)
}

// Tick runs one authoritative step for every character and broadcasts the
// snapshots that are due.
func (s *Server) Tick(now time.Time) {
	s.applyJoins()
	s.applyLeaves()

	var snaps []messages.Snapshot
	CharacterAuthority.Each(s.world, func(entry *donburi.Entry) {
		if snap, ok := s.tickCharacter(entry, now); ok {
			snaps = append(snaps, snap)
		}
	})

	for _, snap := range snaps {
		s.broadcast(snap)
	}
}

// tickCharacter advances one character. A panic is reported and the
// character keeps its previous state.
func (s *Server) tickCharacter(entry *donburi.Entry, now time.Time) (snap messages.Snapshot, ok bool) {
	id := netcomponents.Identity.Get(entry)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Uint32("character", id.NetworkID).Interface("panic", r).Msg("character tick panicked")
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("character", id.PlayerUID)
				scope.SetTag("player", id.Name)
			})
			hub.Recover(r)
			ok = false
		}
	}()

	state := netcomponents.Kinematic.Get(entry)
	auth := CharacterAuthority.Get(entry)

	next, out, _ := s.authority.Tick(*state, auth, now)
	*state = next
	if out == nil {
		return messages.Snapshot{}, false
	}
	out.Character = id.NetworkID
	return *out, true
}

func (s *Server) broadcast(msg messages.Message) {
	s.broadcastExcept(msg, nil)
}

func (s *Server) broadcastExcept(msg messages.Message, skip *Conn) {
	s.mu.Lock()
	peers := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		if c != skip {
			peers = append(peers, c)
		}
	}
	s.mu.Unlock()

	for _, c := range peers {
		if err := c.peer.Send(transport.Client, msg); err != nil {
			s.log.Debug().Err(err).Uint32("peer", c.id).Stringer("kind", msg.Kind()).Msg("send failed")
			continue
		}
		s.counters.Inc(diag.MessagesSent)
	}
}

func (s *Server) applyJoins() {
	s.mu.Lock()
	joins := s.joins
	s.joins = nil
	s.mu.Unlock()

	for _, c := range joins {
		s.spawn(c)
	}
}

func (s *Server) spawn(c *Conn) {
	s.mu.Lock()
	if c.closed {
		c.pending = false
		s.mu.Unlock()
		return
	}
	id := s.nextID
	s.nextID++
	sp := s.level.Spawn(s.spawned)
	s.spawned++
	c.id = id
	c.pending = false
	name := c.name
	s.mu.Unlock()

	uid := fmt.Sprintf("Player_%d", id)
	entity := s.world.Create(tags.Character, netcomponents.Kinematic, netcomponents.Identity, CharacterAuthority)
	entry := s.world.Entry(entity)
	netcomponents.Kinematic.SetValue(entry, movement.NewState(sp.Position, sp.Yaw, s.cfg.Movement))
	netcomponents.Identity.SetValue(entry, netcomponents.IdentityData{
		NetworkID: id,
		PlayerUID: uid,
		Name:      name,
	})
	CharacterAuthority.SetValue(entry, AuthorityData{Inbox: c.inbox})

	s.mu.Lock()
	c.entity = entity
	s.conns[id] = c
	s.mu.Unlock()

	accepted := messages.JoinAccepted{
		NetworkID:    id,
		PlayerUID:    uid,
		ServerName:   s.cfg.Server.Name,
		Level:        s.level.Level.Name,
		TickRate:     uint32(s.cfg.Network.TickRate),
		SendInterval: uint32(s.cfg.Network.SendInterval / time.Millisecond),
		Spawn:        sp.Position,
		SpawnYaw:     sp.Yaw,
	}
	if err := c.peer.Send(transport.Client, accepted); err != nil {
		s.log.Warn().Err(err).Uint32("character", id).Msg("failed to send join acceptance")
	}

	// the others learn about the newcomer and the newcomer about them
	s.broadcastExcept(messages.Snapshot{Character: id, Position: sp.Position}, c)
	s.sendExisting(c)

	s.log.Info().
		Uint32("character", id).
		Str("uid", uid).
		Str("player", name).
		Interface("spawn", sp.Position).
		Msg("Player spawned")
}

// sendExisting sends c the current position of every other character.
func (s *Server) sendExisting(c *Conn) {
	CharacterAuthority.Each(s.world, func(entry *donburi.Entry) {
		if entry.Entity() == c.entity {
			return
		}
		state := netcomponents.Kinematic.Get(entry)
		snap := messages.Snapshot{
			Character:  netcomponents.Identity.Get(entry).NetworkID,
			Timestamp:  CharacterAuthority.Get(entry).LastAck,
			Position:   state.Position,
			MoveVector: state.MoveVector,
		}
		if err := c.peer.Send(transport.Client, snap); err != nil {
			s.log.Debug().Err(err).Uint32("peer", c.id).Msg("send failed")
			return
		}
		s.counters.Inc(diag.MessagesSent)
	})
}

func (s *Server) applyLeaves() {
	s.mu.Lock()
	leaves := s.leaves
	s.leaves = nil
	var gone []*Conn
	for _, c := range leaves {
		if c.id == 0 {
			continue
		}
		delete(s.conns, c.id)
		gone = append(gone, c)
	}
	s.mu.Unlock()

	for _, c := range gone {
		if s.world.Valid(c.entity) {
			s.world.Remove(c.entity)
		}
		s.log.Info().Uint32("character", c.id).Msg("Player entity removed")
		s.broadcast(messages.CharacterLeft{NetworkID: c.id})
	}
}

// State returns the authoritative state of a character.
func (s *Server) State(id uint32) (movement.State, bool) {
	s.mu.Lock()
	c, ok := s.conns[id]
	s.mu.Unlock()
	if !ok || !s.world.Valid(c.entity) {
		return movement.State{}, false
	}
	return *netcomponents.Kinematic.Get(s.world.Entry(c.entity)), true
}

// World returns the ECS world.
func (s *Server) World() donburi.World {
	return s.world
}

// PlayerCount returns the number of joined players.
func (s *Server) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Counters returns the server's message counters.
func (s *Server) Counters() *diag.Counters {
	return s.counters
}
