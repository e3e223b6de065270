package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FPSYNC_NETWORK_TICKRATE.
const EnvPrefix = "FPSYNC"

// Load builds a Config from defaults, an optional config file, FPSYNC_*
// environment variables and any flags in fs whose names match config keys
// (e.g. "server.port"). path and fs may both be empty/nil.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("error binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	// Movement
	v.SetDefault("movement.walkSpeed", d.Movement.WalkSpeed)
	v.SetDefault("movement.runSpeed", d.Movement.RunSpeed)
	v.SetDefault("movement.crouchSpeed", d.Movement.CrouchSpeed)
	v.SetDefault("movement.jumpSpeed", d.Movement.JumpSpeed)
	v.SetDefault("movement.gravity", d.Movement.Gravity)
	v.SetDefault("movement.gravityMultiplier", d.Movement.GravityMultiplier)
	v.SetDefault("movement.stickToGroundForce", d.Movement.StickToGroundForce)
	v.SetDefault("movement.slowdownFactor", d.Movement.SlowdownFactor)
	v.SetDefault("movement.strafeSpeed", d.Movement.StrafeSpeed)
	v.SetDefault("movement.strafeCeiling", d.Movement.StrafeCeiling)
	v.SetDefault("movement.radius", d.Movement.Radius)
	v.SetDefault("movement.standHeight", d.Movement.StandHeight)
	v.SetDefault("movement.crouchHeight", d.Movement.CrouchHeight)
	v.SetDefault("movement.standEyeHeight", d.Movement.StandEyeHeight)
	v.SetDefault("movement.crouchEyeHeight", d.Movement.CrouchEyeHeight)
	v.SetDefault("movement.projectOnGround", d.Movement.ProjectOnGround)
	v.SetDefault("movement.stepInterval", d.Movement.StepInterval)
	v.SetDefault("movement.runstepLengthen", d.Movement.RunstepLengthen)

	// Network
	v.SetDefault("network.tickRate", d.Network.TickRate)
	v.SetDefault("network.sendInterval", d.Network.SendInterval)
	v.SetDefault("network.historyCapacity", d.Network.HistoryCapacity)
	v.SetDefault("network.inboundQueueLimit", d.Network.InboundQueueLimit)
	v.SetDefault("network.snapshotQueueLimit", d.Network.SnapshotQueueLimit)
	v.SetDefault("network.stalenessBound", d.Network.StalenessBound)
	v.SetDefault("network.divergenceThreshold", d.Network.DivergenceThreshold)
	v.SetDefault("network.prediction", d.Network.Prediction)
	v.SetDefault("network.reconciliation", d.Network.Reconciliation)
	v.SetDefault("network.localInterpolation", d.Network.LocalInterpolation)
	v.SetDefault("network.interpolationFactor", d.Network.InterpolationFactor)

	// Simulated input
	v.SetDefault("simInput.enabled", d.SimInput.Enabled)
	v.SetDefault("simInput.minReroll", d.SimInput.MinReroll)
	v.SetDefault("simInput.maxReroll", d.SimInput.MaxReroll)
	v.SetDefault("simInput.seed", d.SimInput.Seed)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("server.version", d.Server.Version)
	v.SetDefault("server.maxPlayers", d.Server.MaxPlayers)
	v.SetDefault("server.levelsDir", d.Server.LevelsDir)
	v.SetDefault("server.level", d.Server.Level)
	v.SetDefault("server.statsviewAddr", d.Server.StatsviewAddr)
	v.SetDefault("server.sentryDSN", d.Server.SentryDSN)
	v.SetDefault("server.diagnosticsDB", d.Server.DiagnosticsDB)

	v.SetDefault("client.address", d.Client.Address)
	v.SetDefault("client.playerName", d.Client.PlayerName)
	v.SetDefault("client.levelsDir", d.Client.LevelsDir)
	v.SetDefault("client.sentryDSN", d.Client.SentryDSN)

	v.SetDefault("level.metersPerTile", d.Level.MetersPerTile)
	v.SetDefault("level.wallHeight", d.Level.WallHeight)
	v.SetDefault("level.floorDepth", d.Level.FloorDepth)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("sim.clients", d.Sim.Clients)
	v.SetDefault("sim.duration", d.Sim.Duration)
	v.SetDefault("sim.latency", d.Sim.Latency)
	v.SetDefault("sim.jitter", d.Sim.Jitter)
	v.SetDefault("sim.lossRate", d.Sim.LossRate)
	v.SetDefault("sim.timeScale", d.Sim.TimeScale)
}
