package core

import (
	"fmt"

	"github.com/automoto/fpsync/assets"
	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/leveldata"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// ServerLevel holds the server's collision world and spawn data for a level.
type ServerLevel struct {
	Level *leveldata.Level
	World *physics.World
}

// NewServerLevel builds the collision world from parsed level data.
func NewServerLevel(level *leveldata.Level) *ServerLevel {
	return &ServerLevel{
		Level: level,
		World: physics.NewLevelWorld(level),
	}
}

// Spawn returns the spawn point for the n-th join. Levels without spawn
// points put everyone in the middle of the map.
func (l *ServerLevel) Spawn(n int) leveldata.SpawnPoint {
	if sp, ok := l.Level.Spawn(n); ok {
		return sp
	}
	return leveldata.SpawnPoint{Position: mgl32.Vec3{l.Level.Width / 2, 0, l.Level.Depth / 2}}
}

// LoadServerLevel loads cfg.Server.Level from cfg.Server.LevelsDir, or from
// the built-in levels when no directory is configured.
func LoadServerLevel(cfg config.Config, log zerolog.Logger) (*ServerLevel, error) {
	loader := assets.NewLevelLoader(cfg.Server.LevelsDir, cfg.Level)
	level, err := loader.LoadLevel(cfg.Server.Level)
	if err != nil {
		return nil, fmt.Errorf("load server level: %w", err)
	}

	log.Info().
		Str("level", level.Name).
		Int("boxes", len(level.Boxes)).
		Int("spawns", len(level.SpawnPoints)).
		Float32("width", level.Width).
		Float32("depth", level.Depth).
		Msg("Loaded level")

	return NewServerLevel(level), nil
}
