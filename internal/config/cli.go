package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Flag names shared by the binaries.
const (
	FlagConfig   = "config"
	FlagEngine   = "engine"
	FlagTPS      = "tps"
	FlagLogLevel = "log-level"
	FlagLogFile  = "log-file"
)

// Flags are the command line overrides every binary accepts.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
			EnvVars: []string{EnvPrefix + "CONFIG"},
		},
		&cli.StringFlag{
			Name:  FlagEngine,
			Usage: "localization engine executable; remaining args after -- are passed to it",
		},
		&cli.IntFlag{
			Name:  FlagTPS,
			Usage: "simulation ticks per second",
		},
		&cli.StringFlag{
			Name:  FlagLogLevel,
			Usage: "log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  FlagLogFile,
			Usage: "also write JSON logs to `FILE`, rotated",
		},
	}
}

// FromContext loads the config file named by --config, applies ROBOTSENSE_*
// variables, then the command line flags, and validates the result.
func FromContext(c *cli.Context) (Config, error) {
	cfg, err := LoadFile(c.String(FlagConfig))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if c.IsSet(FlagEngine) {
		cfg.Engine.Name = c.String(FlagEngine)
		if args := c.Args().Slice(); len(args) > 0 {
			cfg.Engine.Args = args
		}
	}
	if c.IsSet(FlagTPS) {
		cfg.Loop.TPS = c.Int(FlagTPS)
	}
	if c.IsSet(FlagLogLevel) {
		cfg.Log.Level = c.String(FlagLogLevel)
	}
	if c.IsSet(FlagLogFile) {
		cfg.Log.File = c.String(FlagLogFile)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
