// Package netconfig defines lightweight types shared between client and server
// for network serialization. It must stay free of simulation and transport
// dependencies so every other package can import it.
package netconfig

// Intent identifies one of the four movement intents of a command.
type Intent int

const (
	IntentForward Intent = iota
	IntentLeft
	IntentBack
	IntentRight

	IntentCount // Must be last - used for array sizing
)

func (i Intent) String() string {
	switch i {
	case IntentForward:
		return "forward"
	case IntentLeft:
		return "left"
	case IntentBack:
		return "back"
	case IntentRight:
		return "right"
	}
	return "unknown"
}

// Axes is the ordered set of movement intents, in wire order
// (forward, left, back, right). It is deliberately not a 2D vector.
type Axes [IntentCount]bool

// NewAxes builds Axes from the four named intents.
func NewAxes(forward, left, back, right bool) Axes {
	var a Axes
	a[IntentForward] = forward
	a[IntentLeft] = left
	a[IntentBack] = back
	a[IntentRight] = right
	return a
}

func (a Axes) Forward() bool { return a[IntentForward] }
func (a Axes) Left() bool    { return a[IntentLeft] }
func (a Axes) Back() bool    { return a[IntentBack] }
func (a Axes) Right() bool   { return a[IntentRight] }

// Any reports whether any intent is held.
func (a Axes) Any() bool {
	for _, held := range a {
		if held {
			return true
		}
	}
	return false
}
