package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// MaxTickRate keeps the fixed step at one nanosecond or more.
const MaxTickRate = int(time.Second)

type Config struct {
	Engine  EngineConfig  `toml:"engine" yaml:"engine"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Scene   SceneConfig   `toml:"scene" yaml:"scene"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts"`
}

type EngineConfig struct {
	TickRate         int `toml:"tick_rate" yaml:"tick_rate"`                     // fixed updates per second
	MaxStepsPerFrame int `toml:"max_steps_per_frame" yaml:"max_steps_per_frame"` // spiral-of-death guard
	MaxTicks         int `toml:"max_ticks" yaml:"max_ticks"`                     // 0 = run until cancelled
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // json or console
}

type SceneConfig struct {
	Paths []string `toml:"paths" yaml:"paths"`
}

type ScriptsConfig struct {
	Dir      string `toml:"dir" yaml:"dir"`
	Function string `toml:"function" yaml:"function"` // per-entity update function, empty disables the system
	Priority int    `toml:"priority" yaml:"priority"`
}

// Load reads path over the defaults. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown config format %q", ErrInvalidConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate:         60,
			MaxStepsPerFrame: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scripts: ScriptsConfig{
			Function: "update",
		},
	}
}

func (c *Config) Validate() error {
	if c.Engine.TickRate <= 0 || c.Engine.TickRate > MaxTickRate {
		return fmt.Errorf("%w: engine.tick_rate must be in [1, %d], got %d", ErrInvalidConfig, MaxTickRate, c.Engine.TickRate)
	}
	if c.Engine.MaxStepsPerFrame <= 0 {
		return fmt.Errorf("%w: engine.max_steps_per_frame must be positive, got %d", ErrInvalidConfig, c.Engine.MaxStepsPerFrame)
	}
	if c.Engine.MaxTicks < 0 {
		return fmt.Errorf("%w: engine.max_ticks must not be negative", ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format must be json or console, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
