package config

import (
	"errors"
	"fmt"
	"time"
)

// MovementConfig contains all character movement tuning values.
// Both roles must run with identical values or prediction will drift.
type MovementConfig struct {
	// Speeds (units per second)
	WalkSpeed   float32 `mapstructure:"walkSpeed"`
	RunSpeed    float32 `mapstructure:"runSpeed"`
	CrouchSpeed float32 `mapstructure:"crouchSpeed"`
	JumpSpeed   float32 `mapstructure:"jumpSpeed"`

	// Physics
	Gravity            float32 `mapstructure:"gravity"` // Downward acceleration, negative
	GravityMultiplier  float32 `mapstructure:"gravityMultiplier"`
	StickToGroundForce float32 `mapstructure:"stickToGroundForce"`
	SlowdownFactor     float32 `mapstructure:"slowdownFactor"` // Per-tick decay of an axis with no intent while grounded

	// Air control
	StrafeSpeed   float32 `mapstructure:"strafeSpeed"`   // Added per tick to an admitted axis
	StrafeCeiling float32 `mapstructure:"strafeCeiling"` // Lateral speed past which same-direction strafe is refused

	// Dimensions
	Radius          float32 `mapstructure:"radius"`
	StandHeight     float32 `mapstructure:"standHeight"`
	CrouchHeight    float32 `mapstructure:"crouchHeight"`
	StandEyeHeight  float32 `mapstructure:"standEyeHeight"`
	CrouchEyeHeight float32 `mapstructure:"crouchEyeHeight"`

	// Slopes
	ProjectOnGround bool `mapstructure:"projectOnGround"`

	// Footsteps
	StepInterval    float32 `mapstructure:"stepInterval"`
	RunstepLengthen float32 `mapstructure:"runstepLengthen"`
}

// NetworkConfig contains prediction, reconciliation and transport pacing options.
type NetworkConfig struct {
	TickRate            int           `mapstructure:"tickRate"`
	SendInterval        time.Duration `mapstructure:"sendInterval"`
	HistoryCapacity     int           `mapstructure:"historyCapacity"`
	InboundQueueLimit   int           `mapstructure:"inboundQueueLimit"`
	SnapshotQueueLimit  int           `mapstructure:"snapshotQueueLimit"`
	StalenessBound      time.Duration `mapstructure:"stalenessBound"`
	DivergenceThreshold float32       `mapstructure:"divergenceThreshold"`

	Prediction          bool    `mapstructure:"prediction"`
	Reconciliation      bool    `mapstructure:"reconciliation"`
	LocalInterpolation  bool    `mapstructure:"localInterpolation"`
	InterpolationFactor float32 `mapstructure:"interpolationFactor"`
}

// SimInputConfig configures the random input generator used for load testing.
type SimInputConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	MinReroll time.Duration `mapstructure:"minReroll"`
	MaxReroll time.Duration `mapstructure:"maxReroll"`
	Seed      uint64        `mapstructure:"seed"`
}

// ServerConfig contains dedicated server options.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	Name          string `mapstructure:"name"`
	Version       string `mapstructure:"version"` // Required client version, empty accepts any
	MaxPlayers    int    `mapstructure:"maxPlayers"`
	LevelsDir     string `mapstructure:"levelsDir"` // Empty uses the levels built into the binary
	Level         string `mapstructure:"level"`
	StatsviewAddr string `mapstructure:"statsviewAddr"`
	SentryDSN     string `mapstructure:"sentryDSN"`
	DiagnosticsDB string `mapstructure:"diagnosticsDB"`
}

// ClientConfig contains headless client options.
type ClientConfig struct {
	Address    string `mapstructure:"address"`
	PlayerName string `mapstructure:"playerName"`
	LevelsDir  string `mapstructure:"levelsDir"` // Empty uses the levels built into the binary
	SentryDSN  string `mapstructure:"sentryDSN"`
}

// LevelConfig controls how Tiled maps are turned into collision boxes.
type LevelConfig struct {
	MetersPerTile float32 `mapstructure:"metersPerTile"`
	WallHeight    float32 `mapstructure:"wallHeight"`
	FloorDepth    float32 `mapstructure:"floorDepth"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SimConfig controls the in-process netsim harness.
type SimConfig struct {
	Clients   int           `mapstructure:"clients"`
	Duration  time.Duration `mapstructure:"duration"`
	Latency   time.Duration `mapstructure:"latency"`
	Jitter    time.Duration `mapstructure:"jitter"`
	LossRate  float64       `mapstructure:"lossRate"`
	TimeScale float64       `mapstructure:"timeScale"`
}

// Config is the full option set shared by the binaries.
type Config struct {
	Movement MovementConfig `mapstructure:"movement"`
	Network  NetworkConfig  `mapstructure:"network"`
	SimInput SimInputConfig `mapstructure:"simInput"`
	Server   ServerConfig   `mapstructure:"server"`
	Client   ClientConfig   `mapstructure:"client"`
	Level    LevelConfig    `mapstructure:"level"`
	Log      LogConfig      `mapstructure:"log"`
	Sim      SimConfig      `mapstructure:"sim"`
}

// Send interval bounds accepted by Validate.
const (
	MinSendInterval = 20 * time.Millisecond
	MaxSendInterval = 500 * time.Millisecond
)

// DefaultMovement returns the standard first-person controller tuning.
func DefaultMovement() MovementConfig {
	return MovementConfig{
		WalkSpeed:   5,
		RunSpeed:    10,
		CrouchSpeed: 3,
		JumpSpeed:   10,

		Gravity:            -9.81,
		GravityMultiplier:  2,
		StickToGroundForce: 10,
		SlowdownFactor:     0.6,

		StrafeSpeed:   0.5,
		StrafeCeiling: 5,

		Radius:          0.5,
		StandHeight:     1.8,
		CrouchHeight:    1.4,
		StandEyeHeight:  1.6,
		CrouchEyeHeight: 1.2,

		StepInterval:    5,
		RunstepLengthen: 0.7,
	}
}

// DefaultNetwork returns the default pacing and prediction options.
func DefaultNetwork() NetworkConfig {
	return NetworkConfig{
		TickRate:            50,
		SendInterval:        20 * time.Millisecond,
		HistoryCapacity:     250,
		InboundQueueLimit:   500,
		SnapshotQueueLimit:  64,
		StalenessBound:      200 * time.Millisecond,
		DivergenceThreshold: 0.005,

		Prediction:          true,
		Reconciliation:      true,
		LocalInterpolation:  true,
		InterpolationFactor: 10,
	}
}

// Default returns a Config with every option at its default value.
func Default() Config {
	return Config{
		Movement: DefaultMovement(),
		Network:  DefaultNetwork(),
		SimInput: SimInputConfig{
			MinReroll: 10 * time.Millisecond,
			MaxReroll: 2 * time.Second,
			Seed:      1,
		},
		Server: ServerConfig{
			Port:          7373,
			Name:          "fpsync",
			MaxPlayers:    16,
			Level:         "arena",
			DiagnosticsDB: "",
		},
		Client: ClientConfig{
			Address:    "localhost:7373",
			PlayerName: "player",
		},
		Level: LevelConfig{
			MetersPerTile: 1,
			WallHeight:    3,
			FloorDepth:    1,
		},
		Log: LogConfig{
			Level: "info",
		},
		Sim: SimConfig{
			Clients:   4,
			Duration:  30 * time.Second,
			Latency:   50 * time.Millisecond,
			Jitter:    10 * time.Millisecond,
			TimeScale: 1,
		},
	}
}

// TickDelta returns the fixed simulation step in seconds.
func (n NetworkConfig) TickDelta() float32 {
	return 1 / float32(n.TickRate)
}

// TickInterval returns the fixed simulation step as a duration.
func (n NetworkConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(n.TickRate)
}

// Validate reports option combinations the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Network.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("network.tickRate must be positive, got %d", c.Network.TickRate))
	}
	if c.Network.SendInterval < MinSendInterval || c.Network.SendInterval > MaxSendInterval {
		errs = append(errs, fmt.Errorf("network.sendInterval must be within %s..%s, got %s",
			MinSendInterval, MaxSendInterval, c.Network.SendInterval))
	}
	if c.Network.HistoryCapacity < 1 {
		errs = append(errs, fmt.Errorf("network.historyCapacity must be at least 1, got %d", c.Network.HistoryCapacity))
	}
	if c.Network.InboundQueueLimit < 1 {
		errs = append(errs, fmt.Errorf("network.inboundQueueLimit must be at least 1, got %d", c.Network.InboundQueueLimit))
	}
	if c.Network.SnapshotQueueLimit < 1 {
		errs = append(errs, fmt.Errorf("network.snapshotQueueLimit must be at least 1, got %d", c.Network.SnapshotQueueLimit))
	}
	if c.Network.StalenessBound <= 0 {
		errs = append(errs, errors.New("network.stalenessBound must be positive"))
	}
	if c.Movement.SlowdownFactor < 0 || c.Movement.SlowdownFactor > 1 {
		errs = append(errs, fmt.Errorf("movement.slowdownFactor must be within 0..1, got %g", c.Movement.SlowdownFactor))
	}
	if c.Movement.Radius <= 0 || c.Movement.StandHeight <= 0 || c.Movement.CrouchHeight <= 0 {
		errs = append(errs, errors.New("movement dimensions must be positive"))
	}
	if c.SimInput.MinReroll <= 0 || c.SimInput.MaxReroll < c.SimInput.MinReroll {
		errs = append(errs, fmt.Errorf("simInput reroll range %s..%s is invalid", c.SimInput.MinReroll, c.SimInput.MaxReroll))
	}
	return errors.Join(errs...)
}
