// Package config provides configuration loading for the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the application configuration, loaded from switchboard.toml.
// Netfile-level policy wins over config-level policy; flags win over both.
type Config struct {
	Producer  ProducerConfig  `toml:"producer"`
	Policy    PolicyConfig    `toml:"policy"`
	Trace     TraceConfig     `toml:"trace"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Eventing  EventingConfig  `toml:"eventing"`
}

// ProducerConfig selects and configures the decision producer.
type ProducerConfig struct {
	Kind        string  `toml:"kind"` // "openai" or "script"
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	APIKeyEnv   string  `toml:"api_key_env"`
	Temperature float32 `toml:"temperature"`
	MaxRetries  int     `toml:"max_retries"`
}

// PolicyConfig carries run guard overrides. Zero values defer to the
// netfile's compiled policy and the engine defaults.
type PolicyConfig struct {
	MaxSteps        int    `toml:"max_steps"`
	MaxToolErrors   int    `toml:"max_tool_errors"`
	ToolTimeout     string `toml:"tool_timeout"` // Go duration, e.g. "60s"
	TolerateDenials bool   `toml:"tolerate_denials"`
}

// TraceConfig controls where run traces are written.
type TraceConfig struct {
	Dir string `toml:"dir"`
}

// TelemetryConfig contains OTLP exporter settings.
type TelemetryConfig struct {
	Endpoint string `toml:"endpoint"` // e.g. localhost:4318; empty disables
	Insecure bool   `toml:"insecure"`
}

// EventingConfig contains NATS publishing settings.
type EventingConfig struct {
	URL string `toml:"url"` // e.g. nats://localhost:4222; empty disables
}

// New returns a config with defaults.
func New() *Config {
	return &Config{
		Producer: ProducerConfig{
			Kind:      "openai",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Trace: TraceConfig{
			Dir: defaultTraceDir(),
		},
	}
}

func defaultTraceDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".switchboard/runs"
	}
	return filepath.Join(home, ".switchboard", "runs")
}

// LoadFile loads configuration from a TOML file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load loads switchboard.toml from the current directory if present,
// otherwise returns the defaults.
func Load() (*Config, error) {
	path := "switchboard.toml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// APIKey resolves the producer API key from the configured environment
// variable.
func (c *Config) APIKey() string {
	if c.Producer.APIKeyEnv == "" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv(c.Producer.APIKeyEnv)
}
