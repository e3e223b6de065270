package systems

import (
	"fmt"
	"time"

	"github.com/automoto/fpsync/components"
	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/netcomponents"
	"github.com/automoto/fpsync/tags"
	"github.com/rs/zerolog"
	"github.com/tanema/gween"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// SnapshotDeps are the collaborators of the snapshot system.
type SnapshotDeps struct {
	Reconciler *network.Reconciler
	Snapshots  func() []messages.Snapshot // Arrived since the last tick
	LocalID    func() uint32
	Clock      func() time.Time
	Report     func(messages.DivergenceReport) // May be nil
	Tuning     config.MovementConfig
	TweenTime  float32 // Seconds a remote proxy takes to reach a new snapshot
	Logger     zerolog.Logger
}

// NewNetSnapshotSystem returns an ECS system that applies authoritative
// snapshots: the local player's through reconciliation, everyone else's
// by moving their proxies.
func NewNetSnapshotSystem(deps SnapshotDeps) func(*ecs.ECS) {
	return func(e *ecs.ECS) {
		now := deps.Clock()
		localID := deps.LocalID()
		for _, snap := range deps.Snapshots() {
			if snap.Character == localID {
				applyLocal(e.World, deps, snap, now)
				continue
			}
			applyRemote(e.World, deps, snap, now)
		}
	}
}

func applyLocal(world donburi.World, deps SnapshotDeps, snap messages.Snapshot, now time.Time) {
	entry, ok := tags.LocalPlayer.First(world)
	if !ok {
		return
	}
	state := netcomponents.Kinematic.Get(entry)
	local := components.LocalPlayer.Get(entry)

	next, res := deps.Reconciler.Apply(*state, snap, true, now)
	*state = next
	if res.Outcome == network.OutcomeStale {
		return
	}
	local.LastAck = snap.Timestamp
	local.Target = res.Target
	local.HasTarget = res.Outcome == network.OutcomeInterpolated
	if res.Diverged && deps.Report != nil {
		deps.Report(res.Report(snap.Character, snap.Timestamp))
	}
}

func applyRemote(world donburi.World, deps SnapshotDeps, snap messages.Snapshot, now time.Time) {
	entry, ok := FindCharacter(world, snap.Character)
	if !ok {
		entry = spawnProxy(world, deps.Tuning, snap)
		deps.Logger.Debug().Uint32("character", snap.Character).Msg("remote character appeared")
	}
	state := netcomponents.Kinematic.Get(entry)
	interp := components.NetInterp.Get(entry)

	next, res := deps.Reconciler.Apply(*state, snap, false, now)
	next.MoveVector = snap.MoveVector
	*state = next

	if res.Outcome != network.OutcomeInterpolated {
		interp.Tweens = [3]*gween.Tween{}
		interp.Target = state.Position
		interp.Initialized = true
		return
	}
	if !interp.Initialized {
		// first sighting: place it, nothing to smooth from
		state.Position = res.Target
		interp.Target = res.Target
		interp.Initialized = true
		return
	}
	interp.Retarget(state.Position, res.Target, deps.TweenTime)
}

func spawnProxy(world donburi.World, tuning config.MovementConfig, snap messages.Snapshot) *donburi.Entry {
	entity := world.Create(tags.Character, tags.RemotePlayer, netcomponents.Kinematic, netcomponents.Identity, components.NetInterp)
	entry := world.Entry(entity)
	netcomponents.Kinematic.SetValue(entry, movement.NewState(snap.Position, 0, tuning))
	netcomponents.Identity.SetValue(entry, netcomponents.IdentityData{
		NetworkID: snap.Character,
		PlayerUID: fmt.Sprintf("Player_%d", snap.Character),
	})
	return entry
}

// FindCharacter returns the character entry with network id id.
func FindCharacter(world donburi.World, id uint32) (*donburi.Entry, bool) {
	var found *donburi.Entry
	netcomponents.Identity.Each(world, func(entry *donburi.Entry) {
		if found == nil && netcomponents.Identity.Get(entry).NetworkID == id {
			found = entry
		}
	})
	return found, found != nil
}

// RemoveCharacter deletes the remote proxy with network id id.
func RemoveCharacter(world donburi.World, id uint32) bool {
	entry, ok := FindCharacter(world, id)
	if !ok || entry.HasComponent(components.LocalPlayer) {
		return false
	}
	world.Remove(entry.Entity())
	return true
}
