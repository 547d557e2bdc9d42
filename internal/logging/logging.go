// Package logging provides the named zap loggers used across the simulator.
package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the sugared zap logger passed to every component.
type Logger = *zap.SugaredLogger

// Options controls where and how much a root logger writes.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error"). Empty means info.
	Level string
	// File, when set, receives JSON log lines through a rotating writer.
	File string
	// MaxSizeMB is the rotation threshold for File. Zero means 10.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to keep. Zero keeps 3.
	MaxBackups int
}

// NewLoggerConfig returns the console encoder configuration shared by all loggers:
// ISO8601 timestamps, coloured capital levels and no stacktraces.
func NewLoggerConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// ParseLevel converts a level name into a zap level. Empty input is info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid log level %q", level)
	}
	return lvl, nil
}

// New builds a named root logger writing to stdout and, optionally, a rotating file.
func New(name string, opts Options) (Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	enabler := zap.NewAtomicLevelAt(lvl)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(NewLoggerConfig()), zapcore.Lock(os.Stdout), enabler),
	}
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: backups,
		}
		fileCfg := NewLoggerConfig()
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotating), enabler))
	}

	return zap.New(zapcore.NewTee(cores...)).Named(name).Sugar(), nil
}

// NewLogger returns an info level stdout logger. It never fails.
func NewLogger(name string) Logger {
	logger, err := New(name, Options{})
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger
}

// NewBlankLogger returns a logger that discards everything.
func NewBlankLogger() Logger {
	return zap.NewNop().Sugar()
}
