package systems

import (
	"github.com/automoto/fpsync/components"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/shared/netcomponents"
	"github.com/automoto/fpsync/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// arrived is how close the local player must get to stop easing.
const arrived = 1e-4

// NewNetInterpSystem returns an ECS system that eases positions toward
// their authoritative targets: the local player by an exponential step of
// factor*dt when snapshots are followed, remote proxies along their tweens.
func NewNetInterpSystem(dt, factor float32) func(*ecs.ECS) {
	return func(e *ecs.ECS) {
		if entry, ok := tags.LocalPlayer.First(e.World); ok {
			local := components.LocalPlayer.Get(entry)
			if local.HasTarget {
				state := netcomponents.Kinematic.Get(entry)
				state.Position = network.Interpolate(state.Position, local.Target, factor, dt)
				if state.Position.Sub(local.Target).Len() < arrived {
					local.HasTarget = false
				}
			}
		}

		components.NetInterp.Each(e.World, func(entry *donburi.Entry) {
			interp := components.NetInterp.Get(entry)
			if !interp.Initialized {
				return
			}
			state := netcomponents.Kinematic.Get(entry)
			state.Position = interp.Advance(dt)
		})
	}
}
