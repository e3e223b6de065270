package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/fpsync/assets"
	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/network"
	"github.com/automoto/fpsync/scenes"
	"github.com/automoto/fpsync/server/core"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/logging"
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/pflag"
)

// Version can be set at build time via ldflags.
var Version = "dev"

const appName = "fpsync"

// Preference toggles a flag can override for one run.
var preferenceFlags = []string{
	"client.playerName",
	"network.prediction",
	"network.reconciliation",
	"network.localInterpolation",
}

func main() {
	d := config.Default()
	fs := pflag.NewFlagSet("fpsync", pflag.ExitOnError)
	configPath := fs.String("config", "", "Config file (yaml, json or toml)")
	savePrefs := fs.Bool("save-prefs", false, "Remember the prediction toggles and player name")
	fs.String("client.address", d.Client.Address, "Server address")
	fs.String("client.playerName", d.Client.PlayerName, "Player name")
	fs.String("client.levelsDir", d.Client.LevelsDir, "Directory of .tmx levels (empty = built-in)")
	fs.String("client.sentryDSN", d.Client.SentryDSN, "Report panics to Sentry")
	fs.Bool("network.prediction", d.Network.Prediction, "Predict local movement")
	fs.Bool("network.reconciliation", d.Network.Reconciliation, "Replay unacknowledged commands on snapshots")
	fs.Bool("network.localInterpolation", d.Network.LocalInterpolation, "Ease toward snapshots when not reconciling")
	fs.Bool("simInput.enabled", d.SimInput.Enabled, "Drive the bot with random input")
	fs.Uint64("simInput.seed", d.SimInput.Seed, "Random input seed")
	fs.String("log.level", d.Log.Level, "Log level")
	fs.Bool("log.pretty", d.Log.Pretty, "Human-readable logs")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fpsync: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	prefStore, err := config.OpenPreferences(appName)
	if err != nil {
		log.Warn().Err(err).Msg("Preferences unavailable")
	} else {
		applyPreferences(prefStore, &cfg, fs)
	}

	flush, err := diag.InitSentry(cfg.Client.SentryDSN, Version, cfg.Client.PlayerName)
	if err != nil {
		log.Warn().Err(err).Msg("Sentry disabled")
	}
	defer flush()

	counters, err := diag.NewCounters("client")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create counters")
	}

	loader := assets.NewLevelLoader(cfg.Client.LevelsDir, cfg.Level)
	client := network.NewClient(log)
	session := scenes.NewSession(cfg, scenes.SessionDeps{
		Link:     client,
		Sampler:  newSampler(cfg),
		Levels:   loader.LoadLevel,
		Counters: counters,
		Recorder: diag.LogRecorder{Logger: logging.Component(log, "diag")},
		Logger:   log,
	})

	// the client sends the join request once the socket is up
	client.Connect(cfg.Client.Address, Version, cfg.Client.PlayerName)

	loop := core.NewGameLoop(session, cfg.Network.TickRate, log)
	crashed := make(chan struct{})
	go func() {
		defer close(crashed)
		defer sentry.Recover()
		loop.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	watch := time.NewTicker(500 * time.Millisecond)
	defer watch.Stop()

wait:
	for {
		select {
		case <-sigChan:
			log.Info().Msg("Shutting down client...")
			break wait
		case <-crashed:
			log.Error().Msg("Client loop crashed")
			break wait
		case <-watch.C:
			if client.State() == network.StateError {
				log.Error().Err(client.LastError()).Msg("Connection failed")
				break wait
			}
		}
	}

	select {
	case <-crashed:
	default:
		loop.Stop()
	}
	client.Disconnect()

	log.Info().Object("summary", counters.Summary()).Uint32("network_id", client.NetworkID()).Msg("Client stopped")

	if *savePrefs && prefStore != nil {
		if err := prefStore.Save(config.PreferencesFrom(cfg)); err != nil {
			log.Warn().Err(err).Msg("Failed to save preferences")
		}
	}
}

// applyPreferences overlays saved preferences on cfg. Flags given on the
// command line win.
func applyPreferences(store *config.PreferenceStore, cfg *config.Config, fs *pflag.FlagSet) {
	prefs, ok, err := store.Load()
	if err != nil || !ok {
		return
	}
	flagged := *cfg
	prefs.Apply(cfg)
	for _, name := range preferenceFlags {
		if !fs.Changed(name) {
			continue
		}
		switch name {
		case "client.playerName":
			cfg.Client.PlayerName = flagged.Client.PlayerName
		case "network.prediction":
			cfg.Network.Prediction = flagged.Network.Prediction
		case "network.reconciliation":
			cfg.Network.Reconciliation = flagged.Network.Reconciliation
		case "network.localInterpolation":
			cfg.Network.LocalInterpolation = flagged.Network.LocalInterpolation
		}
	}
}

// newSampler returns random input when enabled, otherwise a square patrol.
func newSampler(cfg config.Config) network.Sampler {
	if cfg.SimInput.Enabled {
		return network.NewRandomSampler(cfg.SimInput)
	}
	return network.NewScriptedSampler(patrol(cfg.Network.TickRate, 100)...)
}

// patrol walks a square, one second per side, laps times.
func patrol(tickRate, laps int) []network.Sample {
	sides := []netconfig.Axes{
		netconfig.NewAxes(true, false, false, false),
		netconfig.NewAxes(false, false, false, true),
		netconfig.NewAxes(false, false, true, false),
		netconfig.NewAxes(false, true, false, false),
	}
	var script []network.Sample
	for lap := 0; lap < laps; lap++ {
		for _, axes := range sides {
			script = append(script, network.Repeat(network.Sample{Axes: axes, Walk: true}, tickRate)...)
		}
	}
	return script
}
