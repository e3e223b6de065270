package tags

import "github.com/yohamta/donburi"

var (
	Character    = donburi.NewTag().SetName("Character")
	LocalPlayer  = donburi.NewTag().SetName("LocalPlayer")
	RemotePlayer = donburi.NewTag().SetName("RemotePlayer")
)

// Resolv tags for physics collision
const (
	ResolvSolid = "solid"
)
