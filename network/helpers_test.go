package network

import (
	"time"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

var t0 = time.Unix(5000, 0)

type recordingSender struct {
	sent []messages.Message
	err  error
}

func (s *recordingSender) Send(_ transport.Role, msg messages.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) batches() []messages.CommandBatch {
	var out []messages.CommandBatch
	for _, m := range s.sent {
		if b, ok := m.(messages.CommandBatch); ok {
			out = append(out, b)
		}
	}
	return out
}

func newTestSim() *movement.Simulator {
	w := physics.NewWorld(cube.Box(0, -1, 0, 100, 20, 100))
	w.AddBox(cube.Box(0, -1, 0, 100, 0, 100))
	return movement.NewSimulator(config.DefaultMovement(), w)
}

func spawnState() movement.State {
	return movement.NewState(mgl32.Vec3{50, 0, 20}, 0, config.DefaultMovement())
}

var forwardSample = Sample{Axes: netconfig.NewAxes(true, false, false, false)}

func tickAt(i int) time.Time {
	return t0.Add(time.Duration(i) * 20 * time.Millisecond)
}
