package core

import (
	"testing"
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/leveldata"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatLevel() *leveldata.Level {
	return &leveldata.Level{
		Name:  "flat",
		Width: 100,
		Depth: 100,
		Boxes: []leveldata.Box{
			{Min: mgl32.Vec3{0, -1, 0}, Max: mgl32.Vec3{100, 0, 100}, Source: "floor"},
		},
		SpawnPoints: []leveldata.SpawnPoint{
			{Position: mgl32.Vec3{50, 0, 20}},
			{Position: mgl32.Vec3{20, 0, 50}, Yaw: 90, Index: 1},
		},
	}
}

// harness wires one server to any number of clients over zero-latency
// loopback links and steps everything on a shared fake clock.
type harness struct {
	t        *testing.T
	cfg      config.Config
	level    *ServerLevel
	server   *Server
	counters *diag.Counters
	recorded []diag.Divergence
	now      time.Time
	links    []*transport.Loopback
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	counters, err := diag.NewCounters("server")
	require.NoError(t, err)

	h := &harness{t: t, cfg: cfg, level: NewServerLevel(flatLevel()), counters: counters, now: t0}
	h.server = NewServer(cfg, h.level, ServerDeps{
		Counters: counters,
		Recorder: diag.RecorderFunc(func(d diag.Divergence) { h.recorded = append(h.recorded, d) }),
		Clock:    func() time.Time { return h.now },
		Logger:   zerolog.Nop(),
	})
	return h
}

type testClient struct {
	h      *harness
	link   transport.Link
	conn   *Conn
	inbox  []messages.Message
	joined messages.JoinAccepted
}

func (h *harness) connect() *testClient {
	loop := transport.NewLoopback(transport.LoopbackOptions{}, h.now)
	h.links = append(h.links, loop)
	c := &testClient{h: h, link: loop.End(transport.Client)}
	c.conn = h.server.AcceptLink(loop.End(transport.Server))
	c.link.OnReceive(func(msg messages.Message) { c.inbox = append(c.inbox, msg) })
	return c
}

func (h *harness) pump() {
	for _, l := range h.links {
		l.Pump(h.now)
	}
}

// step delivers what the clients sent, ticks the server at tick i and
// delivers its replies.
func (h *harness) step(i int) {
	h.now = tickAt(i)
	h.pump()
	h.server.Tick(h.now)
	h.pump()
}

func (c *testClient) join(i int) messages.JoinAccepted {
	c.h.t.Helper()
	require.NoError(c.h.t, c.link.Send(transport.Server, messages.JoinRequest{Version: "test", PlayerName: "bot"}))
	c.h.step(i)
	for _, msg := range c.drain() {
		if acc, ok := msg.(messages.JoinAccepted); ok {
			c.joined = acc
			return acc
		}
	}
	c.h.t.Fatal("no join acceptance")
	return messages.JoinAccepted{}
}

func (c *testClient) drain() []messages.Message {
	out := c.inbox
	c.inbox = nil
	return out
}

func (c *testClient) snapshots() []messages.Snapshot {
	var out []messages.Snapshot
	for _, msg := range c.drain() {
		if s, ok := msg.(messages.Snapshot); ok {
			out = append(out, s)
		}
	}
	return out
}

// predictor is the owning client's half of the protocol.
type predictor struct {
	state      movement.State
	history    *network.History
	pipeline   *network.Pipeline
	reconciler *network.Reconciler
}

func (c *testClient) predictor(sampler network.Sampler, recorder diag.Recorder) *predictor {
	cfg := c.h.cfg
	sim := movement.NewSimulator(cfg.Movement, c.h.level.World)
	history := network.NewHistory(cfg.Network.HistoryCapacity)
	stamper := network.NewStamper(t0)
	return &predictor{
		state:   movement.NewState(c.joined.Spawn, c.joined.SpawnYaw, cfg.Movement),
		history: history,
		pipeline: network.NewPipeline(cfg.Network, network.PipelineDeps{
			Simulator: sim,
			History:   history,
			Stamper:   stamper,
			Sampler:   sampler,
			Sender:    c.link,
			Logger:    zerolog.Nop(),
		}),
		reconciler: network.NewReconciler(cfg.Network, network.ReconcilerDeps{
			Simulator: sim,
			History:   history,
			Stamper:   stamper,
			Recorder:  recorder,
			Logger:    zerolog.Nop(),
		}),
	}
}

func (p *predictor) tick(now time.Time) network.TickResult {
	var res network.TickResult
	p.state, res = p.pipeline.Tick(now, p.state)
	return res
}

func TestServer_JoinAssignsIdentity(t *testing.T) {
	h := newHarness(t, config.Default())
	a := h.connect()
	b := h.connect()

	accA := a.join(0)
	accB := b.join(1)

	assert.Equal(t, uint32(1), accA.NetworkID)
	assert.Equal(t, "Player_1", accA.PlayerUID)
	assert.Equal(t, uint32(2), accB.NetworkID)
	assert.Equal(t, "Player_2", accB.PlayerUID)
	assert.Equal(t, mgl32.Vec3{50, 0, 20}, accA.Spawn)
	assert.Equal(t, mgl32.Vec3{20, 0, 50}, accB.Spawn)
	assert.Equal(t, float32(90), accB.SpawnYaw)
	assert.Equal(t, uint32(50), accA.TickRate)
	assert.Equal(t, uint32(20), accA.SendInterval)
	assert.Equal(t, 2, h.server.PlayerCount())

	state, ok := h.server.State(accB.NetworkID)
	require.True(t, ok)
	assert.Equal(t, accB.Spawn, state.Position)
	assert.True(t, state.Grounded)
}

func TestServer_RejectsVersionMismatch(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Version = "2"
	h := newHarness(t, cfg)
	c := h.connect()

	require.NoError(t, c.link.Send(transport.Server, messages.JoinRequest{Version: "1", PlayerName: "old"}))
	h.step(0)

	msgs := c.drain()
	require.Len(t, msgs, 1)
	rej, ok := msgs[0].(messages.JoinRejected)
	require.True(t, ok)
	assert.Contains(t, rej.Reason, "version mismatch")
	assert.Equal(t, 0, h.server.PlayerCount())
}

func TestServer_RejectsWhenFull(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxPlayers = 1
	h := newHarness(t, cfg)
	h.connect().join(0)

	c := h.connect()
	require.NoError(t, c.link.Send(transport.Server, messages.JoinRequest{PlayerName: "late"}))
	h.step(1)

	msgs := c.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.JoinRejected{Reason: "server full"}, msgs[0])
}

// A client at rest issues forward once. The server moves the character by
// runSpeed*dt and acknowledges that command; the client, holding only that
// command, evicts it, replays nothing and lands exactly on the server's
// position.
func TestServer_ForwardCommandConverges(t *testing.T) {
	h := newHarness(t, config.Default())
	c := h.connect()
	c.join(0)
	p := c.predictor(network.NewScriptedSampler(network.Sample{Axes: netconfig.NewAxes(true, false, false, false)}), nil)

	h.now = tickAt(1)
	res := p.tick(h.now)
	require.True(t, res.Significant)
	require.Equal(t, 1, res.Flushed)
	require.Equal(t, 1, p.history.Len())

	h.step(1)
	snaps := c.snapshots()
	require.Len(t, snaps, 1)
	snap := snaps[0]

	run := config.Default().Movement.RunSpeed
	p1 := c.joined.Spawn.Add(mgl32.Vec3{0, 0, run * config.Default().Network.TickDelta()})
	assert.Equal(t, c.joined.NetworkID, snap.Character)
	assert.Equal(t, res.Command.Timestamp, snap.Timestamp)
	assert.InDelta(t, p1.X(), snap.Position.X(), 1e-5)
	assert.InDelta(t, p1.Y(), snap.Position.Y(), 1e-5)
	assert.InDelta(t, p1.Z(), snap.Position.Z(), 1e-5)

	next, out := p.reconciler.Apply(p.state, snap, true, h.now)
	assert.Equal(t, network.OutcomeReconciled, out.Outcome)
	assert.Equal(t, 1, out.Evicted)
	assert.Equal(t, 0, out.Replayed)
	assert.Equal(t, 0, p.history.Len())
	assert.False(t, out.Diverged)
	assert.InDelta(t, 0, next.Position.Sub(p1).Len(), 1e-5)
}

// Jump held for several ticks is one jump: the server sees the edge once.
func TestServer_JumpIsOneShot(t *testing.T) {
	h := newHarness(t, config.Default())
	c := h.connect()
	c.join(0)
	p := c.predictor(network.NewScriptedSampler(network.Repeat(network.Sample{Jump: true}, 3)...), nil)

	tuning := config.Default().Movement
	dt := config.Default().Network.TickDelta()

	var cmds []messages.Command
	var ys []float32
	for i := 1; i <= 3; i++ {
		h.now = tickAt(i)
		res := p.tick(h.now)
		if res.Significant {
			cmds = append(cmds, res.Command)
		}
		h.step(i)
		state, ok := h.server.State(c.joined.NetworkID)
		require.True(t, ok)
		ys = append(ys, state.MoveVector.Y())
	}

	require.NotEmpty(t, cmds)
	assert.True(t, cmds[0].Jump)
	for _, cmd := range cmds[1:] {
		assert.False(t, cmd.Jump)
	}

	assert.InDelta(t, tuning.JumpSpeed, ys[0], 1e-5)
	g := tuning.Gravity * tuning.GravityMultiplier * dt
	assert.InDelta(t, tuning.JumpSpeed+g, ys[1], 1e-4)
	assert.InDelta(t, tuning.JumpSpeed+2*g, ys[2], 1e-4)
}

// With no latency every command is simulated on the server in the tick it
// was issued, so random input must never make the two copies diverge.
func TestServer_RandomInputConverges(t *testing.T) {
	h := newHarness(t, config.Default())
	c := h.connect()
	c.join(0)

	in := config.Default().SimInput
	in.Seed = 42
	in.MaxReroll = 300 * time.Millisecond
	var diverged []diag.Divergence
	p := c.predictor(network.NewRandomSampler(in), diag.RecorderFunc(func(d diag.Divergence) {
		diverged = append(diverged, d)
	}))

	snapshots := 0
	for i := 1; i <= 500; i++ {
		h.now = tickAt(i)
		p.tick(h.now)
		h.step(i)
		for _, snap := range c.snapshots() {
			var res network.Result
			p.state, res = p.reconciler.Apply(p.state, snap, true, h.now)
			require.NotEqual(t, network.OutcomeStale, res.Outcome, "tick %d", i)
			snapshots++
		}
	}
	require.Positive(t, snapshots)
	assert.Empty(t, diverged)

	server, ok := h.server.State(c.joined.NetworkID)
	require.True(t, ok)
	assert.InDelta(t, 0, server.Position.Sub(p.state.Position).Len(), 1e-4)
	assert.Equal(t, server.Crouching, p.state.Crouching)
}

func TestServer_LeaveRemovesCharacter(t *testing.T) {
	h := newHarness(t, config.Default())
	a := h.connect()
	b := h.connect()
	a.join(0)
	b.join(1)
	a.drain()

	b.conn.Close()
	h.step(2)

	assert.Equal(t, 1, h.server.PlayerCount())
	_, ok := h.server.State(b.joined.NetworkID)
	assert.False(t, ok)

	var left []messages.CharacterLeft
	for _, msg := range a.drain() {
		if m, ok := msg.(messages.CharacterLeft); ok {
			left = append(left, m)
		}
	}
	assert.Equal(t, []messages.CharacterLeft{{NetworkID: b.joined.NetworkID}}, left)
}

func TestServer_OverflowCounted(t *testing.T) {
	cfg := config.Default()
	cfg.Network.InboundQueueLimit = 2
	h := newHarness(t, cfg)
	c := h.connect()
	c.join(0)

	batch := messages.CommandBatch{}
	for i := 1; i <= 5; i++ {
		batch.Commands = append(batch.Commands, messages.Command{Timestamp: float64(i), Walk: true})
	}
	require.NoError(t, c.link.Send(transport.Server, batch))
	h.step(1)

	assert.Equal(t, int64(5), h.counters.Get(diag.CommandsReceived))
	assert.Equal(t, int64(3), h.counters.Get(diag.CommandsDropped))
}

func TestServer_StoresDivergenceReports(t *testing.T) {
	h := newHarness(t, config.Default())
	c := h.connect()
	acc := c.join(0)

	report := messages.DivergenceReport{Character: 99, Timestamp: 1.5, Drift: 0.25, Corrected: 0.5, Replayed: 3, Digest: 0x5eed}
	require.NoError(t, c.link.Send(transport.Server, report))
	h.step(1)

	require.Len(t, h.recorded, 2)
	for _, d := range h.recorded {
		assert.Equal(t, acc.NetworkID, d.Character, "reports are attributed to the sender")
		assert.Equal(t, "client", d.Source)
		assert.Equal(t, uint64(0x5eed), d.Digest)
	}
}

func TestServer_PanicInOneCharacterIsContained(t *testing.T) {
	h := newHarness(t, config.Default())
	a := h.connect()
	b := h.connect()
	a.join(0)
	b.join(1)

	// a nil inbox makes a's tick panic
	entry := h.server.World().Entry(a.conn.entity)
	CharacterAuthority.Get(entry).Inbox = nil

	require.NoError(t, b.link.Send(transport.Server, messages.CommandBatch{Commands: []messages.Command{
		{Timestamp: 1, Axes: netconfig.NewAxes(true, false, false, false)},
	}}))
	require.NotPanics(t, func() { h.step(2) })

	state, ok := h.server.State(b.joined.NetworkID)
	require.True(t, ok)
	assert.Greater(t, state.Position.X(), b.joined.Spawn.X())
}

func TestServer_JoinAnnouncesCharacters(t *testing.T) {
	h := newHarness(t, config.Default())
	a := h.connect()
	b := h.connect()
	accA := a.join(0)

	require.NoError(t, b.link.Send(transport.Server, messages.JoinRequest{PlayerName: "second"}))
	h.step(1)

	assert.Equal(t, []messages.Snapshot{{Character: 2, Position: mgl32.Vec3{20, 0, 50}}}, a.snapshots())

	var atB []messages.Snapshot
	for _, msg := range b.drain() {
		if s, ok := msg.(messages.Snapshot); ok {
			atB = append(atB, s)
		}
	}
	// the join acceptance carries the newcomer's own spawn
	assert.Equal(t, []messages.Snapshot{{Character: accA.NetworkID, Position: accA.Spawn}}, atB)
}
