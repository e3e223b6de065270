package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/fpsync/config"
	"github.com/automoto/fpsync/server/core"
	"github.com/automoto/fpsync/shared/diag"
	"github.com/automoto/fpsync/shared/logging"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/spf13/pflag"
)

// Version can be set at build time via ldflags.
var Version = "dev"

func main() {
	d := config.Default()
	fs := pflag.NewFlagSet("fpsync-server", pflag.ExitOnError)
	configPath := fs.String("config", "", "Config file (yaml, json or toml)")
	fs.Int("server.port", d.Server.Port, "Server port")
	fs.String("server.name", d.Server.Name, "Server display name")
	fs.String("server.version", d.Server.Version, "Required client version (empty = accept any)")
	fs.Int("server.maxPlayers", d.Server.MaxPlayers, "Maximum joined players, 0 for no limit")
	fs.String("server.level", d.Server.Level, "Level to load")
	fs.String("server.levelsDir", d.Server.LevelsDir, "Directory of .tmx levels (empty = built-in)")
	fs.String("server.statsviewAddr", d.Server.StatsviewAddr, "Serve runtime charts on this address")
	fs.String("server.sentryDSN", d.Server.SentryDSN, "Report panics to Sentry")
	fs.String("server.diagnosticsDB", d.Server.DiagnosticsDB, "SQLite file for divergence reports (empty = in memory)")
	fs.Int("network.tickRate", d.Network.TickRate, "Simulation ticks per second")
	fs.Duration("network.sendInterval", d.Network.SendInterval, "Snapshot send interval")
	fs.String("log.level", d.Log.Level, "Log level")
	fs.Bool("log.pretty", d.Log.Pretty, "Human-readable logs")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fpsync-server: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	flush, err := diag.InitSentry(cfg.Server.SentryDSN, Version, cfg.Server.Name)
	if err != nil {
		log.Warn().Err(err).Msg("Sentry disabled")
	}
	defer flush()

	if cfg.Server.StatsviewAddr != "" {
		// must be configured before statsview.New
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(cfg.Server.StatsviewAddr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
		log.Info().Str("addr", cfg.Server.StatsviewAddr).Msg("Serving runtime charts")
	}

	level, err := core.LoadServerLevel(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load level")
	}

	counters, err := diag.NewCounters("server")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create counters")
	}

	store, err := diag.OpenStore(cfg.Server.DiagnosticsDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open diagnostics store")
	}
	defer store.Close()

	server := core.NewServer(cfg, level, core.ServerDeps{
		Counters: counters,
		Recorder: diag.Multi{diag.LogRecorder{Logger: logging.Component(log, "diag")}, store},
		Logger:   log,
	})
	loop := core.NewGameLoop(server, cfg.Network.TickRate, log)
	go loop.Run()

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("name", cfg.Server.Name).
			Int("port", cfg.Server.Port).
			Int("tickRate", cfg.Network.TickRate).
			Str("version", Version).
			Msg("Starting fpsync server")
		errc <- server.ServeWebsocket(uint(cfg.Server.Port))
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("Shutting down server...")
	case err := <-errc:
		log.Error().Err(err).Msg("Server error")
	}

	loop.Stop()
	summary := counters.Summary()
	log.Info().Object("summary", summary).Int("players", server.PlayerCount()).Msg("Server stopped")
	if n, err := store.Count(diag.KindDrift); err == nil {
		log.Info().Int64("drift", n).Msg("Stored divergence reports")
	}
}
