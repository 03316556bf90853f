/**
 * @description
 * Structured logger for the TTMS backend.
 * Keeps the printf-style helpers used across services and backs them with zap.
 * Info goes to stdout and errors to stderr so log collectors label them correctly.
 *
 * @dependencies
 * - go.uber.org/zap
 */

package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base *zap.Logger
)

func init() {
	l, err := New(getEnv("LOG_LEVEL", "info"), getEnv("LOG_ENCODING", "json"))
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// New builds a zap logger for the given level ("debug", "info", "warn") and encoding ("json", "console").
func New(level, encoding string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = encoding
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Configure rebuilds the process-wide logger, typically from config loaded
// after init already ran with the process environment.
func Configure(level, encoding string) error {
	l, err := New(level, encoding)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Set(l)
	return nil
}

// L returns the process-wide zap logger for structured fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Set replaces the process-wide logger. Tests use it to silence or capture output.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

// Warn logs a warning
func Warn(format string, v ...interface{}) {
	L().Warn(fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	L().Error(fmt.Sprintf(format, v...))
}

// Fatal logs an error and exits
func Fatal(format string, v ...interface{}) {
	L().Fatal(fmt.Sprintf(format, v...))
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = L().Sync()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
