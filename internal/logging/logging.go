// Package logging builds the zap logger shared by the server and CLI.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// New constructs a JSON zap logger. level is a zap level name; an empty or
// invalid value falls back to LOG_LEVEL and then to info. debug forces the
// debug level.
func New(level string, debug bool) (*zap.Logger, error) {
	atomic := zap.NewAtomicLevel()
	name := normalize(level)
	if name == "" {
		name = normalize(os.Getenv("LOG_LEVEL"))
	}
	if err := atomic.UnmarshalText([]byte(name)); err != nil {
		_ = atomic.UnmarshalText([]byte(defaultLevel))
	}
	if debug {
		atomic.SetLevel(zapcore.DebugLevel)
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "logger",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(l.String()))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		StacktraceKey:  "stacktrace",
	}

	cfg := zap.Config{
		Level:             atomic,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	return cfg.Build()
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func normalize(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
