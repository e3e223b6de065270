package core

import (
	"time"

	"github.com/rs/zerolog"
)

// Ticker is anything driven once per fixed step.
type Ticker interface {
	Tick(now time.Time)
}

// GameLoop drives a Ticker from a wall-clock ticker.
type GameLoop struct {
	target   Ticker
	tickRate int
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

func NewGameLoop(target Ticker, tickRate int, log zerolog.Logger) *GameLoop {
	return &GameLoop{
		target:   target,
		tickRate: tickRate,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run ticks until Stop is called.
func (g *GameLoop) Run() {
	defer close(g.done)
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	g.log.Info().Int("tickRate", g.tickRate).Msg("Game loop started")

	for {
		select {
		case <-g.stopChan:
			g.log.Info().Msg("Game loop stopped")
			return
		case now := <-ticker.C:
			g.target.Tick(now)
		}
	}
}

// Stop ends Run and waits for the tick in progress to finish.
func (g *GameLoop) Stop() {
	close(g.stopChan)
	<-g.done
}
