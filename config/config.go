// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate when a parameter is out of range.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Track      TrackConfig      `yaml:"track"`
	Vehicle    VehicleConfig    `yaml:"vehicle"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Progress   ProgressConfig   `yaml:"progress"`
	Policy     PolicyConfig     `yaml:"policy"`
	Population PopulationConfig `yaml:"population"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// TrackConfig holds track construction parameters.
type TrackConfig struct {
	TileSize    float64 `yaml:"tile_size"`    // World units per grid cell
	Random      bool    `yaml:"random"`       // Generate a random loop instead of the predefined circuit
	Moves       string  `yaml:"moves"`        // Explicit move notation, e.g. "TLBBRT" (overrides Random)
	MinLength   int     `yaml:"min_length"`   // Minimum nodes in a generated loop
	MaxLength   int     `yaml:"max_length"`   // Maximum nodes in a generated loop
	MaxAttempts int     `yaml:"max_attempts"` // Random walks tried before giving up
}

// VehicleConfig holds vehicle size and handling parameters.
type VehicleConfig struct {
	Width            float64 `yaml:"width"`
	Height           float64 `yaml:"height"`
	MinSpeed         float64 `yaml:"min_speed"`         // Speed floor, keeps agents moving
	MaxSpeed         float64 `yaml:"max_speed"`         // Speed ceiling
	MaxTurnVelocity  float64 `yaml:"max_turn_velocity"` // Degrees per tick, symmetric bound
	TurnSpeedBleed   float64 `yaml:"turn_speed_bleed"`  // Speed lost per degree of turn velocity change
	DistanceScale    float64 `yaml:"distance_scale"`    // World units travelled per unit of speed
	AccelerationStep float64 `yaml:"acceleration_step"` // Policy accel output [-1,1] is scaled by this
	TurnStep         float64 `yaml:"turn_step"`         // Policy turn output [-1,1] is scaled by this
}

// SensorsConfig holds raycast sensor parameters.
type SensorsConfig struct {
	OffsetAngle       float64 `yaml:"offset_angle"`       // Degrees between center and side sensors
	BoundaryTolerance float64 `yaml:"boundary_tolerance"` // Slack when testing hits against wall bounds
	InputScale        float64 `yaml:"input_scale"`        // Distance multiplier before feeding the policy
}

// ProgressConfig holds progress tracking and fitness parameters.
type ProgressConfig struct {
	MaxCheckpointJump int     `yaml:"max_checkpoint_jump"` // Checkpoint changes must be smaller than this
	StagnationTicks   int     `yaml:"stagnation_ticks"`    // Ticks without new best progress before ending
	FitnessCeiling    float64 `yaml:"fitness_ceiling"`     // Runaway cutoff
	CheckpointWeight  float64 `yaml:"checkpoint_weight"`   // Fitness per remaining checkpoint
	LapWeight         float64 `yaml:"lap_weight"`          // Lap bonus multiplier
}

// PolicyConfig holds policy (brain) parameters.
type PolicyConfig struct {
	Kind                string  `yaml:"kind"`                 // "network" or "regression"
	HiddenNeurons       int     `yaml:"hidden_neurons"`       // Network hidden layer width
	MutationProbability float64 `yaml:"mutation_probability"` // Per-gene mutation chance
	BootstrapRange      float64 `yaml:"bootstrap_range"`      // Width of untrained random outputs
	LearningRate        float64 `yaml:"learning_rate"`        // Network training epoch step size
	MaxSamples          int     `yaml:"max_samples"`          // Recorded samples kept per agent / policy
}

// PopulationConfig holds generational loop parameters.
type PopulationConfig struct {
	Size               int     `yaml:"size"`
	KeepFraction       float64 `yaml:"keep_fraction"`        // Fraction of agents kept each generation
	MaxGenerationTicks int     `yaml:"max_generation_ticks"` // Force-end agents still racing after this
	Workers            int     `yaml:"workers"`              // Tick workers (0 = GOMAXPROCS)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	HallOfFameSize  int `yaml:"hall_of_fame_size"`
	LogEvery        int `yaml:"log_every"`        // Log generation stats every N generations
	SnapshotEvery   int `yaml:"snapshot_every"`   // Snapshot the population every N generations (0 = only on bookmarks)
	BookmarkHistory int `yaml:"bookmark_history"` // Generations averaged by the bookmark detector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	KeepCount     int     // Agents kept per generation (at least 1)
	HalfFootprint float64 // Crash distance from the nearest wall
	SensorLength  float64 // Length of a sensor ray
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// Validate checks that parameters are usable.
func (c *Config) Validate() error {
	switch {
	case c.Track.TileSize <= 0:
		return fmt.Errorf("%w: track.tile_size must be positive", ErrInvalid)
	case c.Track.MinLength < 4 || c.Track.MaxLength < c.Track.MinLength:
		return fmt.Errorf("%w: track lengths need 4 <= min_length <= max_length", ErrInvalid)
	case c.Vehicle.Width <= 0 || c.Vehicle.Height <= 0:
		return fmt.Errorf("%w: vehicle size must be positive", ErrInvalid)
	case c.Vehicle.MinSpeed <= 0 || c.Vehicle.MaxSpeed < c.Vehicle.MinSpeed:
		return fmt.Errorf("%w: vehicle speeds need 0 < min_speed <= max_speed", ErrInvalid)
	case c.Vehicle.MaxTurnVelocity <= 0:
		return fmt.Errorf("%w: vehicle.max_turn_velocity must be positive", ErrInvalid)
	case c.Progress.MaxCheckpointJump < 1:
		return fmt.Errorf("%w: progress.max_checkpoint_jump must be at least 1", ErrInvalid)
	case c.Policy.Kind != "network" && c.Policy.Kind != "regression":
		return fmt.Errorf("%w: unknown policy.kind %q", ErrInvalid, c.Policy.Kind)
	case c.Policy.HiddenNeurons < 1:
		return fmt.Errorf("%w: policy.hidden_neurons must be at least 1", ErrInvalid)
	case c.Policy.MutationProbability < 0 || c.Policy.MutationProbability > 1:
		return fmt.Errorf("%w: policy.mutation_probability must be in [0,1]", ErrInvalid)
	case c.Population.Size < 2:
		return fmt.Errorf("%w: population.size must be at least 2", ErrInvalid)
	case c.Population.KeepFraction <= 0 || c.Population.KeepFraction > 1:
		return fmt.Errorf("%w: population.keep_fraction must be in (0,1]", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	keep := int(float64(c.Population.Size) * c.Population.KeepFraction)
	if keep < 1 {
		keep = 1
	}
	c.Derived.KeepCount = keep

	c.Derived.HalfFootprint = min(c.Vehicle.Width, c.Vehicle.Height) / 2
	c.Derived.SensorLength = 2 * c.Vehicle.Height
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// Clone returns an independent copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
