// Package leveldata provides TMX level parsing shared between client and server.
// It has no dependencies on donburi or resolv; it is pure data.
package leveldata

import "github.com/go-gl/mathgl/mgl32"

// Level holds the collision-relevant data of one arena, in metres.
type Level struct {
	Name        string
	Width       float32 // Along X
	Depth       float32 // Along Z
	Boxes       []Box
	SpawnPoints []SpawnPoint
}

// Box is a solid axis-aligned obstacle.
type Box struct {
	Min, Max mgl32.Vec3
	Source   string // "floor", "wall" or "obstacle"
}

// SpawnPoint represents a player spawn location.
type SpawnPoint struct {
	Position mgl32.Vec3
	Yaw      float32
	Index    int
}

// Options converts map units to world geometry.
type Options struct {
	MetersPerTile float32
	WallHeight    float32 // Height of tiles in the walls layer
	FloorDepth    float32 // Thickness of the slab under the map; 0 disables it
}

// Spawn returns the spawn point for the n-th player, cycling through the
// available points. ok is false when the level has none.
func (l *Level) Spawn(n int) (SpawnPoint, bool) {
	if len(l.SpawnPoints) == 0 {
		return SpawnPoint{}, false
	}
	return l.SpawnPoints[n%len(l.SpawnPoints)], true
}
