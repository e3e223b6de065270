package physics

import (
	"testing"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRoom builds a 20x20 floor at y=0 with a wall at x=[15,16] and a
// ceiling slab at y=[4,5] over x=[0,5].
func newRoom() *World {
	w := NewWorld(cube.Box(0, -1, 0, 20, 10, 20))
	w.AddBox(cube.Box(0, -1, 0, 20, 0, 20))
	w.AddBox(cube.Box(15, 0, 0, 16, 3, 20))
	w.AddBox(cube.Box(0, 4, 0, 5, 5, 20))
	return w
}

func body(x, y, z float32) Body {
	return Body{Position: mgl32.Vec3{x, y, z}, Radius: 0.5, Height: 1.8}
}

func TestMoveAndCollide_Floor(t *testing.T) {
	w := newRoom()

	pos, flags := w.MoveAndCollide(body(10, 0.1, 10), mgl32.Vec3{0, -0.5, 0})
	assert.Equal(t, mgl32.Vec3{10, 0, 10}, pos)
	assert.True(t, flags.Below())
	assert.False(t, flags.Sides())

	// resting exactly on the floor, a downward push still reports contact
	pos, flags = w.MoveAndCollide(body(10, 0, 10), mgl32.Vec3{0, -0.2, 0})
	assert.Equal(t, mgl32.Vec3{10, 0, 10}, pos)
	assert.Equal(t, CollidedBelow, flags)
}

func TestMoveAndCollide_FreeMove(t *testing.T) {
	w := newRoom()
	pos, flags := w.MoveAndCollide(body(10, 2, 10), mgl32.Vec3{0.5, -0.1, 0.25})
	assert.InDelta(t, 10.5, pos[0], 1e-6)
	assert.InDelta(t, 1.9, pos[1], 1e-6)
	assert.InDelta(t, 10.25, pos[2], 1e-6)
	assert.Equal(t, CollidedNone, flags)
}

func TestMoveAndCollide_Wall(t *testing.T) {
	w := newRoom()
	pos, flags := w.MoveAndCollide(body(14, 0, 10), mgl32.Vec3{1, -0.2, 0})
	assert.InDelta(t, 14.5, pos[0], 1e-6)
	assert.True(t, flags.Sides())
	assert.True(t, flags.Below())
	assert.Equal(t, "sides|below", flags.String())
}

func TestMoveAndCollide_WallPastCellBoundary(t *testing.T) {
	w := NewWorld(cube.Box(0, -1, 0, 40, 10, 40))
	w.AddBox(cube.Box(0, -1, 0, 40, 0, 40))
	w.AddBox(cube.Box(30, 0, 0, 31, 3, 40))
	w.AddBox(cube.Box(0, 0, 30, 20, 3, 31))

	tests := []struct {
		name   string
		start  Body
		motion mgl32.Vec3
		axis   int
		want   float32
	}{
		{"x", body(29.4, 0, 10), mgl32.Vec3{0.2, 0, 0}, 0, 29.5},
		{"z", body(10, 0, 29.4), mgl32.Vec3{0, 0, 0.2}, 2, 29.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.start
			for i := 0; i < 12; i++ {
				pos, flags := w.MoveAndCollide(b, tt.motion)
				if i == 0 {
					assert.True(t, flags.Sides())
				}
				b.Position = pos
			}
			assert.InDelta(t, tt.want, b.Position[tt.axis], 1e-5)
		})
	}
}

func TestNearby_ReachesObstacleJustPastArea(t *testing.T) {
	w := NewWorld(cube.Box(0, -1, 0, 40, 10, 40))
	w.AddBox(cube.Box(30, 0, 0, 31, 3, 40))

	// area ends 0.05 short of the wall, less than one grid unit
	found := w.nearby(cube.Box(29, 0, 10, 29.95, 1, 11))
	require.Len(t, found, 1)
	assert.Equal(t, cube.Box(30, 0, 0, 31, 3, 40), found[0])
}

func TestMoveAndCollide_Ceiling(t *testing.T) {
	w := newRoom()
	pos, flags := w.MoveAndCollide(body(2, 2, 10), mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 2.2, pos[1], 1e-5)
	assert.True(t, flags.Above())
	assert.False(t, flags.Below())
}

func TestMoveAndCollide_Deterministic(t *testing.T) {
	a, b := newRoom(), newRoom()
	start := body(14.2, 0.3, 3)
	motion := mgl32.Vec3{1.3, -0.7, -0.4}
	pa, fa := a.MoveAndCollide(start, motion)
	pb, fb := b.MoveAndCollide(start, motion)
	assert.Equal(t, pa, pb)
	assert.Equal(t, fa, fb)
}

func TestSphereCastDown(t *testing.T) {
	w := newRoom()

	hit, ok := w.SphereCastDown(mgl32.Vec3{10, 0.9, 10}, 0.5, 0.9)
	require.True(t, ok)
	assert.InDelta(t, 0.4, hit.Distance, 1e-5)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, hit.Normal)

	_, ok = w.SphereCastDown(mgl32.Vec3{10, 8, 10}, 0.5, 0.9)
	assert.False(t, ok)
}

func TestContactFlagsString(t *testing.T) {
	assert.Equal(t, "none", CollidedNone.String())
	assert.Equal(t, "sides|above|below", (CollidedSides | CollidedAbove | CollidedBelow).String())
}
