// Package config provides configuration management for fieldcomp services.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/solatis/fieldcomp/internal/types"
)

// DefaultCompositeSeparator joins composite members when no separator is configured.
// The maximum code point never occurs in indexed text.
const DefaultCompositeSeparator = "\U0010FFFF"

// DefaultVirtualSeparator joins virtual members when no separator is configured.
const DefaultVirtualSeparator = " "

// ServerConfig holds configuration for the gRPC Composer service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// Addr returns host:port for net.Listen.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// EngineConfig selects which definitions load and how conflicts are handled.
type EngineConfig struct {
	// Datatypes limits loading to these datatypes. Empty loads every datatype
	// that has definition keys.
	Datatypes  []string
	OnConflict string
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig
	Engine      EngineConfig
	Logging     LoggingConfig
	Definitions []types.DefinitionConfig
}

// DefaultConfig returns configuration with default values and no definitions.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			RequestTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			OnConflict: "fail",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ValidateConfig checks port range, positive timeout, and known policy and format names.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	switch cfg.Engine.OnConflict {
	case "fail", "drop":
	default:
		return fmt.Errorf("on_conflict must be fail or drop, got %q", cfg.Engine.OnConflict)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be json or text, got %q", cfg.Logging.Format)
	}
	return nil
}
