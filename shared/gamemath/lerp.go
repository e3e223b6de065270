package gamemath

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween/ease"
)

// Clamp01 limits t to [0, 1].
func Clamp01(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Lerp moves from toward to by t, clamped to [0, 1].
func Lerp(from, to, t float32) float32 {
	return ease.Linear(Clamp01(t), from, to-from, 1)
}

// LerpVec3 is Lerp applied per component.
func LerpVec3(from, to mgl32.Vec3, t float32) mgl32.Vec3 {
	return mgl32.Vec3{
		Lerp(from[0], to[0], t),
		Lerp(from[1], to[1], t),
		Lerp(from[2], to[2], t),
	}
}
