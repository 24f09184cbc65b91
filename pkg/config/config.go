// Package config loads the optional loom.yaml runtime configuration.
//
// The file is optional everywhere it is consumed: a missing loom.yaml
// resolves to Default(), and zero-valued fields inside a present file fall
// back to the same defaults. Only genuinely out-of-range values are errors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in a project root.
const FileName = "loom.yaml"

// Tuned defaults applied to absent or zero-valued fields.
const (
	DefaultMaxRenderCycles   = 64
	DefaultVelocitySmoothing = 0.5
)

// Config represents the optional loom.yaml configuration.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Input     InputConfig     `yaml:"input"`
	Inspector InspectorConfig `yaml:"inspector"`
}

// SchedulerConfig tunes the update scheduler.
type SchedulerConfig struct {
	// MaxRenderCycles bounds how many times one component may rebuild within
	// a single flush before the batch aborts as a loop. Must stay below 100.
	MaxRenderCycles int `yaml:"maxRenderCycles,omitempty"`
}

// InputConfig tunes pointer input processing.
type InputConfig struct {
	// VelocitySmoothing is the exponential moving average weight for pointer
	// velocity samples, in (0, 1].
	VelocitySmoothing float64 `yaml:"velocitySmoothing,omitempty"`
}

// InspectorConfig controls the debug inspector server.
type InspectorConfig struct {
	// Port is the local TCP port the inspector binds. Zero leaves the
	// inspector disabled.
	Port int `yaml:"port,omitempty"`
}

// Default returns the configuration used when no loom.yaml is present.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{MaxRenderCycles: DefaultMaxRenderCycles},
		Input:     InputConfig{VelocitySmoothing: DefaultVelocitySmoothing},
	}
}

// Load reads loom.yaml from dir if present. A missing file resolves to
// Default(); a present file is parsed, filled against defaults, and
// validated.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first out-of-range field, keyed by its yaml path.
func (c *Config) Validate() error {
	if c.Scheduler.MaxRenderCycles < 0 || c.Scheduler.MaxRenderCycles > 99 {
		return fmt.Errorf("scheduler.maxRenderCycles must be in 1..99 (got %d)", c.Scheduler.MaxRenderCycles)
	}
	if c.Input.VelocitySmoothing < 0 || c.Input.VelocitySmoothing > 1 {
		return fmt.Errorf("input.velocitySmoothing must be in (0, 1] (got %v)", c.Input.VelocitySmoothing)
	}
	if c.Inspector.Port < 0 || c.Inspector.Port > 65535 {
		return fmt.Errorf("inspector.port must be in 0..65535 (got %d)", c.Inspector.Port)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Scheduler.MaxRenderCycles == 0 {
		c.Scheduler.MaxRenderCycles = DefaultMaxRenderCycles
	}
	if c.Input.VelocitySmoothing == 0 {
		c.Input.VelocitySmoothing = DefaultVelocitySmoothing
	}
}

// InspectorAddr returns the loopback listen address for the configured
// inspector port, or "" when the inspector is disabled.
func (c *Config) InspectorAddr() string {
	if c.Inspector.Port <= 0 {
		return ""
	}
	return fmt.Sprintf("127.0.0.1:%d", c.Inspector.Port)
}
