// Package logger provides process-wide structured logging.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

func init() {
	sugar = build(os.Getenv("GATEWATCH_LOG_LEVEL"), os.Getenv("GATEWATCH_LOG_FORMAT")).Sugar()
}

func build(levelStr, format string) *zap.Logger {
	level := zapcore.InfoLevel
	if levelStr != "" {
		if err := level.Set(strings.ToLower(levelStr)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	var cfg zap.Config
	if strings.ToLower(format) == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	return l.With(zap.String("service", "gatewatch"))
}

// Info logs at info level with alternating key/value pairs.
func Info(msg string, kv ...any) { sugar.Infow(msg, kv...) }

// Warn logs at warn level with alternating key/value pairs.
func Warn(msg string, kv ...any) { sugar.Warnw(msg, kv...) }

// Error logs at error level with alternating key/value pairs.
func Error(msg string, kv ...any) { sugar.Errorw(msg, kv...) }

// Debug logs at debug level with alternating key/value pairs.
func Debug(msg string, kv ...any) { sugar.Debugw(msg, kv...) }

// Sync flushes buffered entries. Called on shutdown.
func Sync() { _ = sugar.Sync() }
