// Package observability provides structured logging for the KNW actor server.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/knw/internal/config"
)

// NewLogger builds the process logger writing to stderr. Every entry carries
// a "service" field naming the binary that produced it.
//
// Precondition: cfg passed config validation.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	return NewLoggerTo(cfg, service, zapcore.Lock(os.Stderr))
}

// NewLoggerTo builds a logger writing to out. JSON output suits log
// collectors; console output is colored for terminals.
//
// Postcondition: Returns an error for an unknown level or format.
func NewLoggerTo(cfg config.LoggingConfig, service string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	enc, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.Development())
	}
	logger := zap.New(zapcore.NewCore(enc, out, level), opts...)
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger, nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec), nil
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
