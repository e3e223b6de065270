package components

import (
	"github.com/automoto/fpsync/shared/movement"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// LocalPlayerData is the client-only state of the character this client
// owns.
type LocalPlayerData struct {
	// Authoritative position to drift toward when snapshots are followed
	// rather than reconciled.
	Target    mgl32.Vec3
	HasTarget bool

	LastAck float64
	Events  movement.EventSet // Presentation events of the last tick
}

var LocalPlayer = donburi.NewComponentType[LocalPlayerData]()
