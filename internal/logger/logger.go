// Package logger builds the zap loggers used by the CLI and the gRPC server.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New creates a zap logger.
// json uses the production encoder, text the colored development console.
// level is one of debug, info, warn, error; empty keeps the format's default.
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case FormatJSON, "":
		cfg = zap.NewProductionConfig()
	case FormatText:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	// CLI output goes to stdout; logs stay on stderr
	cfg.OutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
