package physics

import (
	"strings"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

// ContactFlags reports which sides of the body touched geometry during the
// last move.
type ContactFlags uint8

const (
	CollidedNone  ContactFlags = 0
	CollidedSides ContactFlags = 1
	CollidedAbove ContactFlags = 2
	CollidedBelow ContactFlags = 4
)

func (f ContactFlags) Below() bool { return f&CollidedBelow != 0 }
func (f ContactFlags) Above() bool { return f&CollidedAbove != 0 }
func (f ContactFlags) Sides() bool { return f&CollidedSides != 0 }

func (f ContactFlags) String() string {
	if f == CollidedNone {
		return "none"
	}
	var parts []string
	if f.Sides() {
		parts = append(parts, "sides")
	}
	if f.Above() {
		parts = append(parts, "above")
	}
	if f.Below() {
		parts = append(parts, "below")
	}
	return strings.Join(parts, "|")
}

// Body is an upright character capsule approximated by a box. Position is
// the centre of the feet.
type Body struct {
	Position mgl32.Vec3
	Radius   float32
	Height   float32
}

// Box returns the body's bounds in world space.
func (b Body) Box() cube.BBox {
	p := b.Position
	return cube.Box(p[0]-b.Radius, p[1], p[2]-b.Radius, p[0]+b.Radius, p[1]+b.Height, p[2]+b.Radius)
}

// GroundHit describes the surface found by a downward cast.
type GroundHit struct {
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	Distance float32
}

// Oracle is the geometry the movement simulator runs against. Results must
// depend only on the geometry and the arguments.
type Oracle interface {
	// SphereCastDown sweeps a sphere of radius from origin straight down for
	// at most maxDist and reports the first surface hit.
	SphereCastDown(origin mgl32.Vec3, radius, maxDist float32) (GroundHit, bool)
	// MoveAndCollide moves body by motion, stopping at obstacles, and
	// returns the new position with the contacts made along the way.
	MoveAndCollide(body Body, motion mgl32.Vec3) (mgl32.Vec3, ContactFlags)
}
