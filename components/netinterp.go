package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
)

// NetInterpData smooths a remote character between snapshots. Each axis
// tweens from where the proxy was drawn to the latest authoritative
// position over one send interval.
type NetInterpData struct {
	Tweens      [3]*gween.Tween
	Target      mgl32.Vec3
	Initialized bool
}

// Retarget starts a tween from from to target lasting duration seconds.
func (d *NetInterpData) Retarget(from, target mgl32.Vec3, duration float32) {
	for i := range d.Tweens {
		d.Tweens[i] = gween.New(from[i], target[i], duration, ease.Linear)
	}
	d.Target = target
}

// Advance moves the tweens forward by dt seconds and returns the position.
// Without tweens the target is returned.
func (d *NetInterpData) Advance(dt float32) mgl32.Vec3 {
	pos := d.Target
	for i, tw := range d.Tweens {
		if tw == nil {
			continue
		}
		v, done := tw.Update(dt)
		if done {
			v = d.Target[i]
			d.Tweens[i] = nil
		}
		pos[i] = v
	}
	return pos
}

var NetInterp = donburi.NewComponentType[NetInterpData]()
