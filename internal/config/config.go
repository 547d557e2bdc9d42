// Package config loads the simulator settings from YAML with environment
// overrides on top.
package config

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/protocol"
	"github.com/Garsondee/Robot-Sense/internal/robot"
	"github.com/Garsondee/Robot-Sense/internal/world"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROBOTSENSE_"

// Arena is the render size and the real arena it stands for.
type Arena struct {
	Width           float64    `yaml:"width"`
	Height          float64    `yaml:"height"`
	HalfWidthMeters float64    `yaml:"half_width_meters"`
	Unit            world.Unit `yaml:"unit"`
}

// Robot tunes the simulated drive.
type Robot struct {
	// Speed is the per-tick step cap in render units.
	Speed float64 `yaml:"speed"`
}

// Loop sets the fixed tick rate.
type Loop struct {
	TPS int `yaml:"tps"`
}

// Log mirrors logging.Options.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Window configures the visualizer window.
type Window struct {
	Title string  `yaml:"title"`
	Scale float64 `yaml:"scale"`
}

// Config is the full simulator configuration.
type Config struct {
	Arena  Arena                  `yaml:"arena"`
	Robot  Robot                  `yaml:"robot"`
	Engine protocol.ProcessConfig `yaml:"engine"`
	Loop   Loop                   `yaml:"loop"`
	Log    Log                    `yaml:"log"`
	Window Window                 `yaml:"window"`
}

// Default returns the built-in settings. The engine command is left empty.
func Default() Config {
	wc := world.DefaultConfig()
	return Config{
		Arena: Arena{
			Width:           wc.RenderWidth,
			Height:          wc.RenderHeight,
			HalfWidthMeters: wc.HalfWidthMeters,
			Unit:            wc.Unit,
		},
		Robot:  Robot{Speed: robot.DefaultSpeed},
		Loop:   Loop{TPS: int(time.Second / robot.DefaultPeriod)},
		Log:    Log{Level: "info"},
		Window: Window{Title: "Robot Sense", Scale: 1},
	}
}

// Load decodes YAML from r over the defaults. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	return cfg, nil
}

// LoadFile reads a YAML config file. An empty path yields the defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return Config{}, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	cfg, err := Load(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ROBOTSENSE_* variables looked up through
// lookup (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *float64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, key)
		}
		*dst = f
		return nil
	}

	str("ENGINE", &c.Engine.Name)
	if v, ok := lookup(EnvPrefix + "ENGINE_ARGS"); ok {
		c.Engine.Args = strings.Fields(v)
	}
	str("ENGINE_CWD", &c.Engine.CWD)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	if v, ok := lookup(EnvPrefix + "UNIT"); ok {
		c.Arena.Unit = world.Unit(strings.TrimSpace(v))
	}
	if err := num("SPEED", &c.Robot.Speed); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "TPS"); ok {
		tps, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "%sTPS", EnvPrefix)
		}
		c.Loop.TPS = tps
	}
	return nil
}

// Validate checks every section. The engine command is not required here so
// that tools can validate a partial config; callers that launch the engine
// check it themselves.
func (c Config) Validate() error {
	if _, err := world.New(c.World()); err != nil {
		return errors.Wrap(err, "arena")
	}
	if c.Robot.Speed <= 0 {
		return errors.Errorf("robot speed must be positive, got %v", c.Robot.Speed)
	}
	if c.Loop.TPS <= 0 {
		return errors.Errorf("loop tps must be positive, got %d", c.Loop.TPS)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Window.Scale <= 0 {
		return errors.Errorf("window scale must be positive, got %v", c.Window.Scale)
	}
	return nil
}

// World converts the arena section.
func (c Config) World() world.Config {
	return world.Config{
		RenderWidth:     c.Arena.Width,
		RenderHeight:    c.Arena.Height,
		HalfWidthMeters: c.Arena.HalfWidthMeters,
		Unit:            c.Arena.Unit,
	}
}

// Period is the tick period implied by Loop.TPS.
func (c Config) Period() time.Duration {
	if c.Loop.TPS <= 0 {
		return robot.DefaultPeriod
	}
	return time.Second / time.Duration(c.Loop.TPS)
}

// LogOptions converts the log section.
func (c Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}
