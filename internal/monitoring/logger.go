// Package monitoring provides the package-level diagnostic loggers used
// across the pipeline. They default to a zap logger at info level but may be
// replaced by SetLogger/Use. Tests or production code can redirect or mute them.
package monitoring

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger.
var Logf func(format string, v ...interface{})

// Warnf reports recoverable problems (bad config sections, malformed rows,
// empty catalogue directories).
var Warnf func(format string, v ...interface{})

func init() {
	l, err := NewLogger("info")
	if err != nil {
		l = zap.NewNop()
	}
	Use(l)
}

// SetLogger replaces both package loggers. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
	Warnf = f
}

// Use routes Logf and Warnf through l.
func Use(l *zap.Logger) {
	s := l.Sugar()
	Logf = s.Infof
	Warnf = s.Warnf
}

// NewLogger builds a console zap logger at the given level. An empty or
// unknown level falls back to LOG_LEVEL and then info.
func NewLogger(level string) (*zap.Logger, error) {
	levelStr := strings.ToLower(strings.TrimSpace(level))
	if levelStr == "" {
		levelStr = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	}
	var lvl zapcore.Level
	if err := lvl.Set(levelStr); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(time.RFC3339Nano))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
