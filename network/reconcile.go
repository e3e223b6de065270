package network

import (
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/gamemath"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// Outcome is what applying a snapshot did to the local state.
type Outcome int

const (
	// OutcomeSnapped replaced the position outright.
	OutcomeSnapped Outcome = iota
	// OutcomeInterpolated stored a target for the interpolation system.
	OutcomeInterpolated
	// OutcomeStale discarded a snapshot older than every pending command.
	OutcomeStale
	// OutcomeReconciled snapped to the snapshot and replayed pending commands.
	OutcomeReconciled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSnapped:
		return "snapped"
	case OutcomeInterpolated:
		return "interpolated"
	case OutcomeStale:
		return "stale"
	case OutcomeReconciled:
		return "reconciled"
	}
	return "unknown"
}

// Result reports one Apply call.
type Result struct {
	Outcome    Outcome
	Target     mgl32.Vec3 // Interpolation target, for OutcomeInterpolated
	Evicted    int
	Replayed   int
	Drift      float32 // Authoritative vs predicted position of the acked command; 0 if unknown
	Correction float32 // How far the local position moved
	Diverged   bool    // Drift or Correction exceeded the threshold
	Digest     uint64  // movement.Digest of the reconciled state, set when Diverged
}

// Report converts a diverged result into the message forwarded to the server.
func (r Result) Report(character uint32, ack float64) messages.DivergenceReport {
	return messages.DivergenceReport{
		Character: character,
		Timestamp: ack,
		Drift:     r.Drift,
		Corrected: r.Correction,
		Replayed:  uint32(r.Replayed),
		Digest:    r.Digest,
	}
}

// Reconciler applies authoritative snapshots to local character state.
type Reconciler struct {
	sim      *movement.Simulator
	history  *History
	stamper  *Stamper
	recorder diag.Recorder
	counters *diag.Counters
	log      zerolog.Logger

	reconcile     bool
	interpolate   bool
	threshold     float32
	dt            float32
	lastRTTSample float64
}

// ReconcilerDeps are the collaborators of a Reconciler. Recorder and
// Counters may be nil.
type ReconcilerDeps struct {
	Simulator *movement.Simulator
	History   *History
	Stamper   *Stamper
	Recorder  diag.Recorder
	Counters  *diag.Counters
	Logger    zerolog.Logger
}

func NewReconciler(cfg config.NetworkConfig, deps ReconcilerDeps) *Reconciler {
	return &Reconciler{
		sim:           deps.Simulator,
		history:       deps.History,
		stamper:       deps.Stamper,
		recorder:      deps.Recorder,
		counters:      deps.Counters,
		log:           deps.Logger,
		reconcile:     cfg.Reconciliation,
		interpolate:   cfg.LocalInterpolation,
		threshold:     cfg.DivergenceThreshold,
		dt:            cfg.TickDelta(),
		lastRTTSample: -1,
	}
}

// Apply folds snap into state. owner says whether state belongs to the
// local player; only the owner's state is reconciled against the history.
func (r *Reconciler) Apply(state movement.State, snap messages.Snapshot, owner bool, now time.Time) (movement.State, Result) {
	if owner {
		r.observeRTT(snap.Timestamp, now)
	}
	if !owner || !r.reconcile || r.history.Len() == 0 {
		return r.follow(state, snap)
	}

	oldest, _ := r.history.Oldest()
	if snap.Timestamp < oldest.Command.Timestamp {
		r.counters.Inc(diag.SnapshotsStale)
		r.log.Debug().
			Float64("ack", snap.Timestamp).
			Float64("oldest", oldest.Command.Timestamp).
			Msg("ignoring stale snapshot")
		return state, Result{Outcome: OutcomeStale}
	}

	res := Result{Outcome: OutcomeReconciled}
	if acked, ok := r.history.Get(snap.Timestamp); ok {
		res.Drift = snap.Position.Sub(acked.PredictedAfter).Len()
	}
	res.Evicted = r.history.EvictThrough(snap.Timestamp)

	before := state.Position
	next := state
	next.Position = snap.Position
	next.MoveVector = snap.MoveVector

	for _, e := range r.history.Entries() {
		replay := e.Before
		replay.Position = next.Position
		replay.MoveVector = next.MoveVector
		replay.ContactFlags = e.FlagsBefore
		next, _ = r.sim.Simulate(replay, e.Command, r.dt)
		res.Replayed++
	}
	next.Events = 0

	res.Correction = before.Sub(next.Position).Len()
	res.Diverged = res.Drift > r.threshold || res.Correction > r.threshold
	if res.Diverged {
		res.Digest = movement.Digest(next)
		r.record(snap, res, now)
	}
	return next, res
}

func (r *Reconciler) follow(state movement.State, snap messages.Snapshot) (movement.State, Result) {
	if r.interpolate {
		return state, Result{Outcome: OutcomeInterpolated, Target: snap.Position}
	}
	state.Position = snap.Position
	state.MoveVector = snap.MoveVector
	return state, Result{Outcome: OutcomeSnapped}
}

func (r *Reconciler) observeRTT(ack float64, now time.Time) {
	if r.stamper == nil || ack <= r.lastRTTSample {
		return
	}
	r.lastRTTSample = ack
	r.counters.ObserveRTT(r.stamper.Since(ack, now))
}

func (r *Reconciler) record(snap messages.Snapshot, res Result, now time.Time) {
	r.counters.Inc(diag.Divergences)
	if r.recorder == nil {
		return
	}
	if res.Drift > r.threshold {
		r.recorder.RecordDivergence(diag.Divergence{
			Character: snap.Character, Kind: diag.KindDrift, Timestamp: snap.Timestamp,
			Magnitude: res.Drift, Replayed: res.Replayed, Digest: res.Digest, Source: "client", At: now,
		})
	}
	if res.Correction > r.threshold {
		r.recorder.RecordDivergence(diag.Divergence{
			Character: snap.Character, Kind: diag.KindCorrection, Timestamp: snap.Timestamp,
			Magnitude: res.Correction, Replayed: res.Replayed, Digest: res.Digest, Source: "client", At: now,
		})
	}
}

// Interpolate moves pos toward target by clamp(factor*dt, 0, 1).
func Interpolate(pos, target mgl32.Vec3, factor, dt float32) mgl32.Vec3 {
	return gamemath.LerpVec3(pos, target, factor*dt)
}
