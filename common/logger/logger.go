package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides a unified logging interface for the assistant and the
// dashboard binaries, backed by zap.

// LogLevel represents log severity levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu    sync.RWMutex
	level = LevelInfo
	sugar = newSugar()
)

func newSugar() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel sets the minimum log level.
func SetLevel(l LogLevel) {
	mu.Lock()
	level = l
	mu.Unlock()
}

// ParseLevel maps a level name to a LogLevel; unknown names yield LevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// UseDevelopment replaces the backend with a human-readable console encoder.
// The dashboard TUI uses this to keep structured JSON off the alternate screen.
func UseDevelopment() {
	mu.Lock()
	defer mu.Unlock()
	cfg := zap.NewDevelopmentConfig()
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return
	}
	sugar = l.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = sugar.Sync()
}

func enabled(l LogLevel) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

// Debugf logs a debug message
func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		sugar.Debugf(format, args...)
	}
}

// Infof logs an info message
func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		sugar.Infof(format, args...)
	}
}

// Warnf logs a warning message
func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		sugar.Warnf(format, args...)
	}
}

// Errorf logs an error message
func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}
