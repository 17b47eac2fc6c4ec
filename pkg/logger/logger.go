// Package logger provides basic logging functionalities.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines a simple interface for leveled logging.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Global std logger instance, initialized with default "info" settings.
var std Logger = newZapLogger("info")

// newZapLogger builds a zap.SugaredLogger at the given level.
// loglevel could be "debug", "info", "warn", "error", "fatal"
func newZapLogger(logLevel string) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	case "fatal":
		level = zapcore.FatalLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "time"

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Build cannot fail with a valid level, but fall back rather than panic.
		return zap.NewExample().Sugar()
	}
	return l.Sugar()
}

// SetGlobalLogLevel reconfigures the global std logger's level.
func SetGlobalLogLevel(logLevel string) {
	std = newZapLogger(logLevel)
}

// Zap returns a non-sugared zap logger for components that take *zap.Logger.
func Zap() *zap.Logger {
	if sugared, ok := std.(*zap.SugaredLogger); ok {
		return sugared.Desugar()
	}
	return zap.NewNop()
}

// Debug logs a debug message using the global std logger.
func Debug(args ...interface{}) {
	std.Debug(args...)
}

// Debugf logs a debug message with formatting.
func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Info logs an informational message using the global std logger.
func Info(args ...interface{}) {
	std.Info(args...)
}

// Infof logs an informational message with formatting.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(args ...interface{}) {
	std.Warn(args...)
}

// Warnf logs a warning message with formatting.
func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Error logs an error message.
func Error(args ...interface{}) {
	std.Error(args...)
}

// Errorf logs an error message with formatting.
func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// Fatal logs a fatal error message and exits.
func Fatal(args ...interface{}) {
	std.Fatal(args...)
}

// Fatalf logs a fatal error message with formatting and exits.
func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
