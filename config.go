package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance shared by config and request checks
var validate = validator.New()

// Config is the soundleak configuration, read from a TOML file
type Config struct {
	Server ServerConfig `toml:"server"`
	Search SearchConfig `toml:"search"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Addr          string `toml:"addr" validate:"required"`
	MaxMapBytes   int64  `toml:"max_map_bytes" validate:"gt=0"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

type SearchConfig struct {
	Workers     int     `toml:"workers" validate:"gte=1,lte=256"`
	MaxAttempts int     `toml:"max_attempts" validate:"gte=0"`
	Radius      float64 `toml:"radius" validate:"gte=0"` // 0 means unbounded
}

type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			MaxMapBytes:   32 << 20,
			EnableMetrics: true,
		},
		Search: SearchConfig{
			Workers: runtime.GOMAXPROCS(0),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// SearchOptions translates the search settings to leak finder options
func (c *Config) SearchOptions(logger *log.Logger) []Option {
	return []Option{
		WithWorkers(c.Search.Workers),
		WithMaxAttempts(c.Search.MaxAttempts),
		WithLogger(logger),
	}
}

// formatValidationError converts validator errors to a single readable error
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if e.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s: failed %s=%s (got %v)", e.Namespace(), e.Tag(), e.Param(), e.Value()))
		} else {
			messages = append(messages, fmt.Sprintf("%s: failed %s", e.Namespace(), e.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
