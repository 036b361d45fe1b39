// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/memgate/internal/completion"
	"github.com/blueberrycongee/memgate/internal/memory/pgstore"
	"github.com/blueberrycongee/memgate/internal/memory/redisstore"
	"github.com/blueberrycongee/memgate/internal/prompt"
)

// Config represents the complete engine configuration.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Upstream completion.Config `yaml:"upstream"`
	Memory   MemoryConfig      `yaml:"memory"`
	Entities EntityConfig      `yaml:"entities"`
	Prompt   PromptConfig      `yaml:"prompt"`
	Store    StoreConfig       `yaml:"store"`
	Health   HealthConfig      `yaml:"health"`
	Logging  LoggingConfig     `yaml:"logging"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings for gateway mode.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// MemoryConfig controls conversation history retention.
type MemoryConfig struct {
	// Enabled turns conversation memory on. When off, every turn is a
	// standalone request and nothing is stored.
	Enabled bool `yaml:"enabled"`

	// MaxMessages bounds the stored history per conversation.
	MaxMessages int `yaml:"max_messages"`

	// TimeoutHours is the retention window; records idle longer are expired.
	TimeoutHours int `yaml:"timeout_hours"`
}

// Timeout returns the retention window as a duration.
func (m MemoryConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutHours) * time.Hour
}

// EntityConfig controls which environment entities reach the prompt.
type EntityConfig struct {
	Domains           []string `yaml:"domains"`
	ExcludeAreas      []string `yaml:"exclude_areas"`
	MaxEntities       int      `yaml:"max_entities"`
	SmartFiltering    bool     `yaml:"smart_filtering"`
	MinimalAttributes bool     `yaml:"minimal_attributes"`
}

// PromptConfig controls system prompt composition.
type PromptConfig struct {
	// Template is the system prompt template text.
	Template string `yaml:"template"`

	// AssistantName is exposed to the template.
	AssistantName string `yaml:"assistant_name"`

	// ComposeContext gates whether the template is rendered with entity
	// context at all. When off the template text is sent as-is.
	ComposeContext bool `yaml:"compose_context"`
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis", "postgres".
	Backend  string            `yaml:"backend"`
	Redis    redisstore.Config `yaml:"redis"`
	Postgres pgstore.Config    `yaml:"postgres"`
}

// HealthConfig controls the periodic upstream probe.
type HealthConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Upstream: completion.Config{
			BaseURL: completion.DefaultBaseURL,
			Model:   completion.DefaultModel,
			Timeout: completion.DefaultTimeout,
		},
		Memory: MemoryConfig{
			Enabled:      true,
			MaxMessages:  20,
			TimeoutHours: 2,
		},
		Entities: EntityConfig{
			Domains:        []string{"light", "switch", "sensor", "binary_sensor", "climate", "cover"},
			MaxEntities:    100,
			SmartFiltering: true,
		},
		Prompt: PromptConfig{
			Template:       prompt.DefaultTemplate,
			AssistantName:  "Mammouth",
			ComposeContext: true,
		},
		Store: StoreConfig{
			Backend:  "memory",
			Redis:    redisstore.DefaultConfig(),
			Postgres: pgstore.DefaultConfig(),
		},
		Health: HealthConfig{
			Enabled:  true,
			Interval: 30 * time.Minute,
			Timeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Upstream.APIKey == "" {
		return fmt.Errorf("upstream.api_key is required")
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout cannot be negative")
	}

	if c.Memory.MaxMessages <= 0 {
		return fmt.Errorf("memory.max_messages must be positive")
	}
	if c.Memory.TimeoutHours <= 0 {
		return fmt.Errorf("memory.timeout_hours must be positive")
	}

	if c.Entities.MaxEntities <= 0 {
		return fmt.Errorf("entities.max_entities must be positive")
	}

	switch c.Store.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Health.Interval < 0 {
		return fmt.Errorf("health.interval cannot be negative")
	}

	return nil
}
