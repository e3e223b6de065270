package gamemath

import (
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/chewxy/math32"
)

// DiagonalScale keeps diagonal movement at axis speed.
var DiagonalScale = 1 / math32.Sqrt(2)

// VerticalAxis folds forward/back into -1, 0 or 1.
func VerticalAxis(forward, back bool) int8 {
	if forward && !back {
		return 1
	}
	if back && !forward {
		return -1
	}
	return 0
}

// HorizontalAxis folds left/right into -1, 0 or 1.
func HorizontalAxis(left, right bool) int8 {
	if right && !left {
		return 1
	}
	if left && !right {
		return -1
	}
	return 0
}

// DesiredMove converts the four intents into local (forward, right) axis
// values, scaled by DiagonalScale when both axes are active.
func DesiredMove(a netconfig.Axes) (vertical, horizontal float32) {
	vertical = float32(VerticalAxis(a.Forward(), a.Back()))
	horizontal = float32(HorizontalAxis(a.Left(), a.Right()))
	if vertical != 0 && horizontal != 0 {
		vertical *= DiagonalScale
		horizontal *= DiagonalScale
	}
	return vertical, horizontal
}

// GroundAxis snaps an axis to intent*speed, or decays it by slowdown when
// the axis has no intent.
func GroundAxis(current, intent, speed, slowdown float32) float32 {
	if intent != 0 {
		return intent * speed
	}
	return current * slowdown
}

// AdmitStrafe decides whether an airborne axis may take a strafe adjustment.
// lateral is the current velocity along the axis, intent the signed input.
func AdmitStrafe(lateral, intent, ceiling float32) bool {
	switch {
	case intent == 0:
		return false
	case lateral == 0:
		return true
	case lateral > 0 && intent > 0:
		return lateral < ceiling
	case lateral < 0 && intent < 0:
		return lateral > -ceiling
	default:
		// opposing the current velocity is always allowed
		return true
	}
}

// Sign returns -1, 0 or 1.
func Sign(v float32) float32 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
