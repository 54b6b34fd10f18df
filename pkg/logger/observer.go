package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Logs is the read side of an observed logger, used by tests to assert on
// what a component logged.
type Logs interface {
	Len() int
	All() []observer.LoggedEntry
	// TakeAll returns a copy of all the observed logs, and truncates the observed
	// slice.
	TakeAll() []observer.LoggedEntry
	FilterMessage(msg string) *observer.ObservedLogs
}

var _ Logs = (*observer.ObservedLogs)(nil)

// NewObserverLogger creates a new logger that logs to an observer and returns the logger and the observer.
func NewObserverLogger(level string) (Logger, Logs) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	core, logs := observer.New(lvl)

	return &ZapLogger{Logger: zap.New(core)}, logs
}
