// Package debug provides the shared protocol-tracing logger. Tracing is
// off unless the LOGSCOUT_DEBUG environment variable is set, in which
// case backends log request and query details to standard error.
package debug

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// Logger returns the process-wide debug logger. It is a no-op logger
// unless LOGSCOUT_DEBUG is set.
func Logger() *zap.Logger {
	once.Do(func() {
		if os.Getenv("LOGSCOUT_DEBUG") == "" {
			logger = zap.NewNop()
			return
		}

		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}

		built, err := cfg.Build()
		if err != nil {
			logger = zap.NewNop()
			return
		}
		logger = built
	})
	return logger
}

// Enabled reports whether debug tracing is active.
func Enabled() bool {
	return os.Getenv("LOGSCOUT_DEBUG") != ""
}
