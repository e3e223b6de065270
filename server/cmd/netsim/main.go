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
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/logging"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/spf13/pflag"
)

func main() {
	d := config.Default()
	fs := pflag.NewFlagSet("fpsync-netsim", pflag.ExitOnError)
	configPath := fs.String("config", "", "Config file (yaml, json or toml)")
	fs.Int("sim.clients", d.Sim.Clients, "Simulated clients")
	fs.Duration("sim.duration", d.Sim.Duration, "Simulated time to run")
	fs.Duration("sim.latency", d.Sim.Latency, "One-way link latency")
	fs.Duration("sim.jitter", d.Sim.Jitter, "Extra random latency, uniform in [0, jitter)")
	fs.Float64("sim.lossRate", d.Sim.LossRate, "Probability that a frame is lost")
	fs.Float64("sim.timeScale", d.Sim.TimeScale, "Simulated seconds per wall second, 0 runs unpaced")
	fs.Uint64("simInput.seed", d.SimInput.Seed, "Random input seed")
	fs.Duration("network.sendInterval", d.Network.SendInterval, "Snapshot and command send interval")
	fs.Bool("network.prediction", d.Network.Prediction, "Predict local movement")
	fs.Bool("network.reconciliation", d.Network.Reconciliation, "Replay unacknowledged commands on snapshots")
	fs.Bool("network.localInterpolation", d.Network.LocalInterpolation, "Ease toward snapshots when not reconciling")
	fs.String("server.level", d.Server.Level, "Level to load")
	fs.String("server.levelsDir", d.Server.LevelsDir, "Directory of .tmx levels (empty = built-in)")
	fs.String("server.diagnosticsDB", d.Server.DiagnosticsDB, "SQLite file for divergence reports (empty = in memory)")
	fs.String("log.level", d.Log.Level, "Log level")
	fs.Bool("log.pretty", d.Log.Pretty, "Human-readable logs")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fpsync-netsim: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	level, err := assets.NewLevelLoader(cfg.Server.LevelsDir, cfg.Level).LoadLevel(cfg.Server.Level)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load level")
	}

	store, err := diag.OpenStore(cfg.Server.DiagnosticsDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open diagnostics store")
	}
	defer store.Close()

	h, err := scenes.NewHarness(cfg, level, scenes.HarnessOptions{
		Clients: cfg.Sim.Clients,
		Link: transport.LoopbackOptions{
			Latency:  cfg.Sim.Latency,
			Jitter:   cfg.Sim.Jitter,
			LossRate: cfg.Sim.LossRate,
			Seed:     cfg.SimInput.Seed,
		},
		Sampler: func(i int) network.Sampler {
			in := cfg.SimInput
			in.Seed += uint64(i)
			return network.NewRandomSampler(in)
		},
		Start:    time.Now(),
		Recorder: diag.Multi{diag.LogRecorder{Logger: logging.Component(log, "diag")}, store},
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build harness")
	}

	log.Info().
		Int("clients", cfg.Sim.Clients).
		Dur("duration", cfg.Sim.Duration).
		Dur("latency", cfg.Sim.Latency).
		Dur("jitter", cfg.Sim.Jitter).
		Float64("loss", cfg.Sim.LossRate).
		Float64("time_scale", cfg.Sim.TimeScale).
		Str("level", level.Name).
		Msg("Starting netsim")

	if err := h.Join("", 50); err != nil {
		log.Fatal().Err(err).Msg("Join failed")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tick := cfg.Network.TickInterval()
	steps := int(cfg.Sim.Duration / tick)
	var pace <-chan time.Time
	if cfg.Sim.TimeScale > 0 {
		ticker := time.NewTicker(time.Duration(float64(tick) / cfg.Sim.TimeScale))
		defer ticker.Stop()
		pace = ticker.C
	}

run:
	for i := 0; i < steps; i++ {
		if pace != nil {
			select {
			case <-pace:
			case <-sigChan:
				break run
			}
		} else {
			select {
			case <-sigChan:
				break run
			default:
			}
		}
		h.Step()
	}

	for i, s := range h.Sessions {
		state, _ := s.State()
		auth, _ := h.Server.State(s.Accepted().NetworkID)
		log.Info().
			Int("client", i).
			Uint32("network_id", s.Accepted().NetworkID).
			Object("summary", s.Counters().Summary()).
			Int("unacked", s.Unacked()).
			Int("remotes", s.RemoteCount()).
			Float32("lead", state.Position.Sub(auth.Position).Len()).
			Int("link_dropped", h.LinkDropped(i)).
			Msg("Client summary")
	}

	log.Info().
		Int("ticks", h.Ticks()).
		Object("summary", h.Server.Counters().Summary()).
		Int("players", h.Server.PlayerCount()).
		Msg("Server summary")
	if n, err := store.Count(diag.KindDrift); err == nil {
		log.Info().Int64("drift", n).Msg("Stored divergence reports")
	}
}
