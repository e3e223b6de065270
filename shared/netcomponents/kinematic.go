package netcomponents

import (
	"github.com/automoto/fpsync/shared/movement"
	"github.com/yohamta/donburi"
)

// Kinematic is the simulated movement state of a character. On the server
// it is authoritative; on the owning client it is the predicted state; on
// other clients it is the last snapshot applied.
var Kinematic = donburi.NewComponentType[movement.State]()
