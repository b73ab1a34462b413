// Package observability wires structured logging for the stores and services.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adapts zap to the key/value logger interface the stores use.
type Logger struct {
	zl    *zap.Logger
	sugar *zap.SugaredLogger
}

// ParseLevel maps a config string to a zap level; unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New builds a production JSON logger writing to stderr. format "console"
// switches to the human readable encoder.
func New(level, format string) (*Logger, error) {
	encoding := "json"
	if strings.EqualFold(format, "console") {
		encoding = "console"
	}
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(ParseLevel(level)),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return Wrap(zl), nil
}

// Wrap adapts an existing zap logger.
func Wrap(zl *zap.Logger) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{zl: zl, sugar: zl.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return Wrap(nil) }

// Named returns a child logger scoped to component.
func (l *Logger) Named(component string) *Logger {
	return Wrap(l.zl.Named(component))
}

// With returns a child logger carrying the key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return Wrap(l.sugar.With(args...).Desugar())
}

func (l *Logger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger { return l.zl }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.zl.Sync() }
