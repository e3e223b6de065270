package physics

import (
	"github.com/automoto/fpsync/shared/leveldata"
	"github.com/ethaniccc/float32-cube/cube"
)

// levelMargin pads the broadphase so bodies pushed against the outer walls
// still find them.
const levelMargin = 2

// NewLevelWorld builds the collision world for a parsed level.
func NewLevelWorld(level *leveldata.Level) *World {
	w := NewWorld(cube.Box(-levelMargin, -levelMargin, -levelMargin,
		level.Width+levelMargin, levelMargin, level.Depth+levelMargin))
	for _, b := range level.Boxes {
		w.AddBox(cube.Box(b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2]))
	}
	return w
}
