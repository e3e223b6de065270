package netcomponents

import "github.com/yohamta/donburi"

type IdentityData struct {
	NetworkID uint32
	PlayerUID string // "Player_<id>"
	Name      string
}

var Identity = donburi.NewComponentType[IdentityData]()
