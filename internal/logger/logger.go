// Package logger provides the shared zap logger. Output goes to stderr
// only: stdout belongs to the MCP stdio transport.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	base *zap.SugaredLogger
)

// Init builds the process logger at the given level ("debug", "info",
// "warn", "error"; empty means info). Safe to call once at startup;
// For falls back to a default info-level logger if Init was never called.
func Init(level string) error {
	l, err := build(level)
	if err != nil {
		return err
	}
	mu.Lock()
	base = l
	mu.Unlock()
	return nil
}

func build(level string) (*zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// For returns a logger named after a component.
func For(component string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		l, err := build("")
		if err != nil {
			l = zap.NewNop().Sugar()
		}
		base = l
	}
	return base.Named(component)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
}
