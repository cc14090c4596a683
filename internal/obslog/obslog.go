// Package obslog constructs the process-wide structured logger.
//
// Grounded on cmd/nerd/main.go's zap setup in the retrieved corpus:
// production config by default, debug level when verbose logging is
// requested, synced on shutdown.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. When debug is true the level is lowered to
// Debug; otherwise Info, matching zap's production defaults.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests that don't
// care about log output.
func Nop() *zap.Logger {
	return zap.NewNop()
}
