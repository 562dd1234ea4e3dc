package logging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

// New builds a logger. jsonOutput selects the production JSON encoder,
// otherwise a development console encoder is used. Empty level means info.
func New(level string, jsonOutput bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	if jsonOutput {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if strings.TrimSpace(level) != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	return config.Build()
}

// L returns the process logger, a no-op logger until Set is called.
func L() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Set replaces the process logger.
func Set(l *zap.Logger) {
	global.Store(l)
}

// OrNop returns l, or the process logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return L()
	}
	return l
}
