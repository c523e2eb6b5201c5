// Package logging builds the process logger: the log/slog API backed by a zap core.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New returns a slog logger writing through zap. format is "json" or
// "console"; level is debug, info, warn or error. The returned sync function
// flushes buffered entries and should be deferred by the caller.
func New(level, format string) (*slog.Logger, func(), error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "console", "text", "dev":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}

	logger := slog.New(zapslog.NewHandler(z.Core(), zapslog.WithCaller(true)))
	return logger, func() { _ = z.Sync() }, nil
}

// Setup builds the logger and installs it as the slog default.
func Setup(level, format string) (func(), error) {
	logger, sync, err := New(level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return sync, nil
}

// NewWithCore wraps an existing zap core, used by tests to capture output.
func NewWithCore(core zapcore.Core) *slog.Logger {
	return slog.New(zapslog.NewHandler(core))
}
