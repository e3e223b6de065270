package leveldata

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lafriks/go-tiled"
)

// Layer and object group names read from TMX files.
const (
	LayerWalls        = "walls"
	GroupObstacles    = "Obstacles"
	GroupPlayerSpawns = "PlayerSpawn"
)

// Load parses a TMX file into a Level. It takes an fs.FS so callers can pass
// embed.FS or os.DirFS.
//
// Tiles in the walls layer become columns from the floor to WallHeight.
// Rectangles in the Obstacles group become boxes spanning their "bottom" and
// "top" properties. PlayerSpawn objects carry "spawnIndex", "yaw" and an
// optional "height".
func Load(fsys fs.FS, tmxPath string, opts Options) (*Level, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}
	if levelMap.TileWidth == 0 || levelMap.TileHeight == 0 {
		return nil, fmt.Errorf("load TMX %s: zero tile size", tmxPath)
	}

	m := opts.MetersPerTile
	// pixel -> metre factors for object coordinates
	px := m / float32(levelMap.TileWidth)
	pz := m / float32(levelMap.TileHeight)

	level := &Level{
		Name:  strings.TrimSuffix(filepath.Base(tmxPath), ".tmx"),
		Width: float32(levelMap.Width) * m,
		Depth: float32(levelMap.Height) * m,
	}

	if opts.FloorDepth > 0 {
		level.Boxes = append(level.Boxes, Box{
			Min:    mgl32.Vec3{0, -opts.FloorDepth, 0},
			Max:    mgl32.Vec3{level.Width, 0, level.Depth},
			Source: "floor",
		})
	}

	for _, layer := range levelMap.Layers {
		if layer.Name != LayerWalls {
			continue
		}
		for y := 0; y < levelMap.Height; y++ {
			for x := 0; x < levelMap.Width; x++ {
				tile := layer.Tiles[y*levelMap.Width+x]
				if tile.IsNil() {
					continue
				}
				level.Boxes = append(level.Boxes, Box{
					Min:    mgl32.Vec3{float32(x) * m, 0, float32(y) * m},
					Max:    mgl32.Vec3{float32(x+1) * m, opts.WallHeight, float32(y+1) * m},
					Source: "wall",
				})
			}
		}
		break
	}

	for _, og := range levelMap.ObjectGroups {
		switch og.Name {
		case GroupObstacles:
			for _, o := range og.Objects {
				bottom, err := floatProperty(o.Properties, "bottom", 0)
				if err != nil {
					return nil, fmt.Errorf("obstacle %d in %s: %w", o.ID, tmxPath, err)
				}
				top, err := floatProperty(o.Properties, "top", opts.WallHeight)
				if err != nil {
					return nil, fmt.Errorf("obstacle %d in %s: %w", o.ID, tmxPath, err)
				}
				level.Boxes = append(level.Boxes, Box{
					Min:    mgl32.Vec3{float32(o.X) * px, bottom, float32(o.Y) * pz},
					Max:    mgl32.Vec3{float32(o.X+o.Width) * px, top, float32(o.Y+o.Height) * pz},
					Source: "obstacle",
				})
			}
		case GroupPlayerSpawns:
			for _, o := range og.Objects {
				yaw, err := floatProperty(o.Properties, "yaw", 0)
				if err != nil {
					return nil, fmt.Errorf("spawn %d in %s: %w", o.ID, tmxPath, err)
				}
				height, err := floatProperty(o.Properties, "height", 0)
				if err != nil {
					return nil, fmt.Errorf("spawn %d in %s: %w", o.ID, tmxPath, err)
				}
				level.SpawnPoints = append(level.SpawnPoints, SpawnPoint{
					Position: mgl32.Vec3{float32(o.X) * px, height, float32(o.Y) * pz},
					Yaw:      yaw,
					Index:    o.Properties.GetInt("spawnIndex"),
				})
			}
		}
	}

	// Sort spawns by index for consistent assignment
	sort.SliceStable(level.SpawnPoints, func(i, j int) bool {
		return level.SpawnPoints[i].Index < level.SpawnPoints[j].Index
	})

	return level, nil
}

func floatProperty(props tiled.Properties, name string, fallback float32) (float32, error) {
	raw := props.GetString(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", name, err)
	}
	return float32(v), nil
}

// LoadAll discovers all .tmx files in levelsDir within fsys, loads each, and
// returns a map keyed by stem name plus a sorted list of names.
func LoadAll(fsys fs.FS, levelsDir string, opts Options) (map[string]*Level, []string, error) {
	pattern := path.Join(levelsDir, "*.tmx")
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", levelsDir)
	}

	levels := make(map[string]*Level, len(matches))
	names := make([]string, 0, len(matches))

	for _, match := range matches {
		level, err := Load(fsys, match, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", match, err)
		}
		levels[level.Name] = level
		names = append(names, level.Name)
	}

	sort.Strings(names)
	return levels, names, nil
}
