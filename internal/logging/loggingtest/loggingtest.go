// Package loggingtest provides loggers for tests. It is kept apart from
// package logging so the binaries do not link the testing packages.
package loggingtest

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Garsondee/Robot-Sense/internal/logging"
)

// NewLogger returns a debug logger that writes through tb.Log.
func NewLogger(tb testing.TB) logging.Logger {
	return zaptest.NewLogger(tb).Sugar()
}

// NewObservedLogger is like NewLogger but also records entries in memory so
// tests can assert on what was logged.
func NewObservedLogger(tb testing.TB) (logging.Logger, *observer.ObservedLogs) {
	observerCore, observed := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	base := zaptest.NewLogger(tb)
	logger := zap.New(zapcore.NewTee(base.Core(), observerCore)).Sugar()
	return logger, observed
}
