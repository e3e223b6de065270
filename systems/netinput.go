package systems

import (
	"time"

	"github.com/automoto/fpsync/components"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/netcomponents"
	"github.com/automoto/fpsync/tags"
	"github.com/yohamta/donburi/ecs"
)

// EventSink receives the presentation events of each local tick.
type EventSink func(movement.EventSet)

// NewNetInputSystem returns an ECS system that samples input for the local
// player, predicts it and batches the resulting commands to the server.
func NewNetInputSystem(pipeline *network.Pipeline, clock func() time.Time, sink EventSink) func(*ecs.ECS) {
	return func(e *ecs.ECS) {
		entry, ok := tags.LocalPlayer.First(e.World)
		if !ok {
			return
		}

		state := netcomponents.Kinematic.Get(entry)
		next, res := pipeline.Tick(clock(), *state)
		*state = next

		local := components.LocalPlayer.Get(entry)
		local.Events = res.Events
		if sink != nil && res.Events != 0 {
			sink(res.Events)
		}
	}
}
