// Package logx provides structured logging functionality
package logx

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger to provide a consistent interface
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
	scope string
}

var globalLogger *Logger

func init() {
	// Library default: warnings and above on the console encoder. Embedding
	// applications raise or reshape this with Init.
	globalLogger = build("warn", "console")
}

// Init configures the global logger level and format (console or json).
func Init(level, format string) {
	globalLogger = build(level, format)
}

func build(level, format string) *Logger {
	config := getLoggerConfig()

	switch strings.ToLower(format) {
	case "json":
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	default:
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap only fails here on an invalid sink; fall back to a no-op
		// logger rather than break the embedding application.
		zapLogger = zap.NewNop()
	}
	return &Logger{zap: zapLogger, sugar: zapLogger.Sugar()}
}

// customTimeEncoder keeps timestamps human-scannable in console output.
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// getLoggerConfig returns the zap configuration
func getLoggerConfig() zap.Config {
	config := zap.NewProductionConfig()

	config.Development = false
	config.DisableCaller = false
	config.DisableStacktrace = true
	config.Sampling = nil

	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.Encoding = "console"

	return config
}

// GetScope returns a named logger for one component, e.g. "entrez" or
// "envoy".
func GetScope(scope string) *Logger {
	l := globalLogger.zap.Named(scope)
	return &Logger{zap: l, sugar: l.Sugar(), scope: scope}
}

// L returns the global sugar logger for key-value style logging.
func L() *zap.SugaredLogger { return globalLogger.sugar }

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// Sugar returns the sugar logger for key-value style logging
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

// Zap returns the underlying zap logger for structured logging
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Debug logs a debug message with structured fields
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs an info message with structured fields
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs a warning message with structured fields
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs an error message with structured fields
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Close flushes any buffered log entries.
func (l *Logger) Close() error { return l.zap.Sync() }
