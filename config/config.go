// Package config provides configuration loading and access for the engine simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/ignition/curve"
	"github.com/pthm-cable/ignition/units"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Engine     EngineConfig     `yaml:"engine"`
	Timing     TimingConfig     `yaml:"timing"`
	Limiter    LimiterConfig    `yaml:"limiter"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds viewer display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// EngineConfig describes the cylinder layout.
type EngineConfig struct {
	Name              string    `yaml:"name"`
	Cylinders         int       `yaml:"cylinders"`
	FiringOrder       []float64 `yaml:"firing_order"`       // Firing angle per cylinder, degrees of crank (0-720)
	DisabledCylinders []int     `yaml:"disabled_cylinders"` // Cylinders with spark cut
}

// TimingConfig holds the advance curve.
type TimingConfig struct {
	Curve    []curve.Point `yaml:"curve"`
	CurveCSV string        `yaml:"curve_csv"` // Overrides Curve when set
}

// LimiterConfig holds rev limiter parameters.
type LimiterConfig struct {
	RevLimitRPM float64 `yaml:"rev_limit_rpm"` // 0 = disabled
	Duration    float64 `yaml:"duration"`      // Seconds of spark cut per trigger
}

// SimulationConfig holds stepping parameters.
type SimulationConfig struct {
	DT       float64 `yaml:"dt"`
	RPM      float64 `yaml:"rpm"`
	Engines  int     `yaml:"engines"`
	MaxTicks int     `yaml:"max_ticks"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FiringAngles []float64 // Per cylinder, radians
	RevLimit     float64   // rad/s
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

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Parse overlays YAML data onto cfg. Only fields present in data are overwritten,
// except lists, which are replaced whole. An overlay that changes the cylinder count
// without giving a firing order drops the current one, so angles fall back to even
// spacing.
func Parse(data []byte, cfg *Config) error {
	var overlay struct {
		Engine struct {
			Cylinders   *int       `yaml:"cylinders"`
			FiringOrder *[]float64 `yaml:"firing_order"`
		} `yaml:"engine"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if overlay.Engine.Cylinders != nil && overlay.Engine.FiringOrder == nil {
		cfg.Engine.FiringOrder = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.Cylinders < 0 {
		errs = append(errs, fmt.Errorf("engine.cylinders must be >= 0, got %d", c.Engine.Cylinders))
	}
	if len(c.Engine.FiringOrder) > c.Engine.Cylinders {
		errs = append(errs, fmt.Errorf("engine.firing_order has %d entries for %d cylinders",
			len(c.Engine.FiringOrder), c.Engine.Cylinders))
	}
	for _, i := range c.Engine.DisabledCylinders {
		if i < 0 || i >= c.Engine.Cylinders {
			errs = append(errs, fmt.Errorf("engine.disabled_cylinders: index %d out of range", i))
		}
	}
	if c.Simulation.DT <= 0 {
		errs = append(errs, fmt.Errorf("simulation.dt must be > 0, got %v", c.Simulation.DT))
	}
	if c.Simulation.Engines < 0 {
		errs = append(errs, fmt.Errorf("simulation.engines must be >= 0, got %d", c.Simulation.Engines))
	}
	if c.Limiter.RevLimitRPM > 0 && c.Limiter.Duration <= 0 {
		errs = append(errs, errors.New("limiter.duration must be > 0 when rev_limit_rpm is set"))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.RevLimit = units.Rpm(c.Limiter.RevLimitRPM)

	// Cylinders without an explicit angle are spaced evenly over the cycle
	n := c.Engine.Cylinders
	c.Derived.FiringAngles = make([]float64, n)
	for i := 0; i < n; i++ {
		deg := 720 * float64(i) / float64(n)
		if i < len(c.Engine.FiringOrder) {
			deg = c.Engine.FiringOrder[i]
		}
		c.Derived.FiringAngles[i] = units.Deg(deg)
	}
}

// TimingCurve builds the configured advance curve, reading CurveCSV if set.
func (c *Config) TimingCurve() (*curve.Function, error) {
	if c.Timing.CurveCSV == "" {
		return curve.FromPoints(c.Timing.Curve)
	}
	f, err := os.Open(c.Timing.CurveCSV)
	if err != nil {
		return nil, fmt.Errorf("opening timing curve: %w", err)
	}
	defer f.Close()
	return curve.LoadCSV(f)
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
