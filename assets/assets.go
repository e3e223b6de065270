package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/shared/leveldata"
)

var (
	//go:embed all:levels
	assetFS embed.FS
)

// LevelsDir is the directory inside the embedded filesystem holding .tmx files.
const LevelsDir = "levels"

// LevelLoader loads arenas either from the binary or from a directory on
// disk, so levels can be edited without rebuilding.
type LevelLoader struct {
	fsys fs.FS
	dir  string
	opts leveldata.Options
}

// NewLevelLoader reads from dir when it is set, from the embedded levels
// otherwise.
func NewLevelLoader(dir string, cfg config.LevelConfig) *LevelLoader {
	l := &LevelLoader{
		fsys: assetFS,
		dir:  LevelsDir,
		opts: leveldata.Options{
			MetersPerTile: cfg.MetersPerTile,
			WallHeight:    cfg.WallHeight,
			FloorDepth:    cfg.FloorDepth,
		},
	}
	if dir != "" {
		l.fsys = os.DirFS(dir)
		l.dir = "."
	}
	return l
}

// LoadLevels loads every level, keyed by stem name, plus the sorted names.
func (l *LevelLoader) LoadLevels() (map[string]*leveldata.Level, []string, error) {
	return leveldata.LoadAll(l.fsys, l.dir, l.opts)
}

// LoadLevel loads the named level.
func (l *LevelLoader) LoadLevel(name string) (*leveldata.Level, error) {
	levels, names, err := l.LoadLevels()
	if err != nil {
		return nil, err
	}
	level, ok := levels[name]
	if !ok {
		return nil, fmt.Errorf("level %q not found, have %v", name, names)
	}
	return level, nil
}
