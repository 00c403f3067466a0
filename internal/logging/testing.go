package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewObserved returns a production-mode logger that records every entry at
// or above DebugLevel. DPanic entries are recorded, not raised.
func NewObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return zap.New(core), observed
}

// NewObservedDevelopment is NewObserved in development mode: DPanic panics
// after the entry is recorded.
func NewObservedDevelopment() (*zap.Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return zap.New(core, zap.Development()), observed
}
