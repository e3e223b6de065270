package leveldata

import (
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOptions = Options{MetersPerTile: 2, WallHeight: 3, FloorDepth: 1}

func TestLoad(t *testing.T) {
	level, err := Load(os.DirFS("testdata"), "levels/arena.tmx", testOptions)
	require.NoError(t, err)

	assert.Equal(t, "arena", level.Name)
	assert.Equal(t, float32(16), level.Width)
	assert.Equal(t, float32(12), level.Depth)

	var floors, walls, obstacles []Box
	for _, b := range level.Boxes {
		switch b.Source {
		case "floor":
			floors = append(floors, b)
		case "wall":
			walls = append(walls, b)
		case "obstacle":
			obstacles = append(obstacles, b)
		}
	}

	require.Len(t, floors, 1)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, floors[0].Min)
	assert.Equal(t, mgl32.Vec3{16, 0, 12}, floors[0].Max)

	// 8x6 border: 2*8 + 2*4
	require.Len(t, walls, 24)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, walls[0].Min)
	assert.Equal(t, mgl32.Vec3{2, 3, 2}, walls[0].Max)

	require.Len(t, obstacles, 1)
	assert.Equal(t, mgl32.Vec3{6, 0, 4}, obstacles[0].Min)
	assert.Equal(t, mgl32.Vec3{10, 0.5, 6}, obstacles[0].Max)

	require.Len(t, level.SpawnPoints, 2)
	assert.Equal(t, 0, level.SpawnPoints[0].Index)
	assert.Equal(t, mgl32.Vec3{4, 0, 8}, level.SpawnPoints[0].Position)
	assert.Equal(t, float32(90), level.SpawnPoints[0].Yaw)
	assert.Equal(t, 1, level.SpawnPoints[1].Index)
	assert.Equal(t, float32(180), level.SpawnPoints[1].Yaw)
}

func TestSpawnCycles(t *testing.T) {
	level, err := Load(os.DirFS("testdata"), "levels/arena.tmx", testOptions)
	require.NoError(t, err)

	first, ok := level.Spawn(0)
	require.True(t, ok)
	third, ok := level.Spawn(2)
	require.True(t, ok)
	assert.Equal(t, first, third)

	_, ok = (&Level{}).Spawn(0)
	assert.False(t, ok)
}

func TestLoadAll(t *testing.T) {
	levels, names, err := LoadAll(os.DirFS("testdata"), "levels", testOptions)
	require.NoError(t, err)
	assert.Equal(t, []string{"arena"}, names)
	assert.Contains(t, levels, "arena")

	_, _, err = LoadAll(os.DirFS("testdata"), "missing", testOptions)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(os.DirFS("testdata"), "levels/nope.tmx", testOptions)
	assert.Error(t, err)
}
