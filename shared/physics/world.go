package physics

import (
	"math"

	"github.com/automoto/fpsync/tags"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/ethaniccc/float32-cube/cube/trace"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
)

// Broadphase resolution: resolv units per metre, and cell size in those units.
const (
	broadphaseScale = 8
	broadphaseCell  = 8
)

var up = mgl32.Vec3{0, 1, 0}

// World is a static set of axis-aligned obstacles with a resolv grid over
// the XZ plane for candidate lookup. A World is not safe for concurrent use;
// each simulation owner keeps its own.
type World struct {
	bounds  cube.BBox
	space   *resolv.Space
	probe   *resolv.Object
	boxes   []cube.BBox
	objects map[*resolv.Object]int
}

// NewWorld creates an empty world covering bounds on the XZ plane. Obstacles
// outside bounds are never found by the broadphase.
func NewWorld(bounds cube.BBox) *World {
	size := bounds.Max().Sub(bounds.Min())
	w := int(math.Ceil(float64(size[0]*broadphaseScale))) + broadphaseCell
	h := int(math.Ceil(float64(size[2]*broadphaseScale))) + broadphaseCell

	world := &World{
		bounds:  bounds,
		space:   resolv.NewSpace(w, h, broadphaseCell, broadphaseCell),
		probe:   resolv.NewObject(0, 0, 1, 1),
		objects: make(map[*resolv.Object]int),
	}
	world.space.Add(world.probe)
	return world
}

// Bounds returns the area covered by the broadphase.
func (w *World) Bounds() cube.BBox {
	return w.bounds
}

// AddBox registers a solid obstacle.
func (w *World) AddBox(b cube.BBox) {
	x, z, bw, bd := w.toSpace(b)
	obj := resolv.NewObject(x, z, bw, bd, tags.ResolvSolid)
	obj.SetShape(resolv.NewRectangle(0, 0, bw, bd))
	w.space.Add(obj)
	w.objects[obj] = len(w.boxes)
	w.boxes = append(w.boxes, b)
}

// Boxes returns every obstacle in insertion order.
func (w *World) Boxes() []cube.BBox {
	return w.boxes
}

func (w *World) toSpace(b cube.BBox) (x, z, width, depth float64) {
	origin := w.bounds.Min()
	min, max := b.Min(), b.Max()
	x = float64(min[0]-origin[0]) * broadphaseScale
	z = float64(min[2]-origin[2]) * broadphaseScale
	width = math.Max(float64(max[0]-min[0])*broadphaseScale, 1)
	depth = math.Max(float64(max[2]-min[2])*broadphaseScale, 1)
	return x, z, width, depth
}

// nearby returns the obstacles whose grid cells overlap area, in a stable order.
// resolv maps an object to the cells under [X, X+W-1], so the probe reaches
// one full unit past area on every side.
func (w *World) nearby(area cube.BBox) []cube.BBox {
	x, z, width, depth := w.toSpace(area)
	w.probe.X, w.probe.Y, w.probe.W, w.probe.H = x-1, z-1, width+3, depth+3
	w.probe.Update()

	check := w.probe.Check(0, 0, tags.ResolvSolid)
	if check == nil {
		return nil
	}
	found := check.ObjectsByTags(tags.ResolvSolid)
	out := make([]cube.BBox, 0, len(found))
	for _, obj := range found {
		if i, ok := w.objects[obj]; ok {
			out = append(out, w.boxes[i])
		}
	}
	return out
}

// MoveAndCollide clips motion against nearby obstacles one axis at a time:
// Y first, then X, then Z, moving the box after each axis.
func (w *World) MoveAndCollide(body Body, motion mgl32.Vec3) (mgl32.Vec3, ContactFlags) {
	box := body.Box()
	candidates := w.nearby(box.Extend(motion))

	var flags ContactFlags
	var moved mgl32.Vec3

	moved[1] = clipAxis(candidates, box, 1, motion[1])
	if moved[1] != motion[1] {
		if motion[1] < 0 {
			flags |= CollidedBelow
		} else {
			flags |= CollidedAbove
		}
	}
	box = box.Translate(mgl32.Vec3{0, moved[1], 0})

	moved[0] = clipAxis(candidates, box, 0, motion[0])
	if moved[0] != motion[0] {
		flags |= CollidedSides
	}
	box = box.Translate(mgl32.Vec3{moved[0], 0, 0})

	moved[2] = clipAxis(candidates, box, 2, motion[2])
	if moved[2] != motion[2] {
		flags |= CollidedSides
	}

	return body.Position.Add(moved), flags
}

// clipAxis shortens delta so moving stops at the first obstacle along axis.
// Obstacles already overlapping on that axis are ignored.
func clipAxis(obstacles []cube.BBox, moving cube.BBox, axis int, delta float32) float32 {
	if delta == 0 {
		return 0
	}
	min, max := moving.Min(), moving.Max()
	for _, b := range obstacles {
		bmin, bmax := b.Min(), b.Max()
		if !overlapsOtherAxes(min, max, bmin, bmax, axis) {
			continue
		}
		if delta > 0 && max[axis] <= bmin[axis] {
			if gap := bmin[axis] - max[axis]; gap < delta {
				delta = gap
			}
		} else if delta < 0 && min[axis] >= bmax[axis] {
			if gap := bmax[axis] - min[axis]; gap > delta {
				delta = gap
			}
		}
	}
	return delta
}

func overlapsOtherAxes(min, max, bmin, bmax mgl32.Vec3, axis int) bool {
	for i := 0; i < 3; i++ {
		if i == axis {
			continue
		}
		if max[i] <= bmin[i] || min[i] >= bmax[i] {
			return false
		}
	}
	return true
}

// SphereCastDown traces the centre line against obstacles grown by radius,
// which matches a sphere sweep everywhere except at box edges.
func (w *World) SphereCastDown(origin mgl32.Vec3, radius, maxDist float32) (GroundHit, bool) {
	end := origin.Sub(mgl32.Vec3{0, maxDist, 0})
	area := cube.Box(origin[0]-radius, end[1]-radius, origin[2]-radius, origin[0]+radius, origin[1], origin[2]+radius)

	var best GroundHit
	found := false
	for _, b := range w.nearby(area) {
		res, ok := trace.BBoxIntercept(b.Grow(radius), origin, end)
		if !ok {
			continue
		}
		hit := res.Position()
		dist := origin[1] - hit[1]
		if dist < 0 || (found && dist >= best.Distance) {
			continue
		}
		best = GroundHit{
			Point:    hit.Sub(mgl32.Vec3{0, radius, 0}),
			Normal:   up,
			Distance: dist,
		}
		found = true
	}
	return best, found
}
