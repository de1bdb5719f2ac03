//go:build !tinygo

package hal

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewHostLogger returns a zap-backed Logger for host builds. Lines land on
// stderr so tool output on stdout stays parseable.
func NewHostLogger() Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return DiscardLogger()
	}
	return &zapLogger{log: logger}
}

type zapLogger struct {
	log *zap.Logger
}

func (l *zapLogger) WriteLineString(s string) { l.log.Warn(s) }
func (l *zapLogger) WriteLineBytes(b []byte)  { l.log.Warn(string(b)) }
