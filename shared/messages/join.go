package messages

import "github.com/go-gl/mathgl/mgl32"

// JoinRequest is sent by a client after connecting to request joining the game.
type JoinRequest struct {
	Version    string
	PlayerName string
}

func (JoinRequest) Kind() Kind { return KindJoinRequest }

// JoinAccepted is sent by the server when a client's join request is accepted.
type JoinAccepted struct {
	NetworkID    uint32
	PlayerUID    string // "Player_<NetworkID>"
	ServerName   string
	Level        string
	TickRate     uint32
	SendInterval uint32 // Milliseconds
	Spawn        mgl32.Vec3
	SpawnYaw     float32
}

func (JoinAccepted) Kind() Kind { return KindJoinAccepted }

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}

func (JoinRejected) Kind() Kind { return KindJoinRejected }

// CharacterLeft tells observers to drop a remote character.
type CharacterLeft struct {
	NetworkID uint32
}

func (CharacterLeft) Kind() Kind { return KindCharacterLeft }
