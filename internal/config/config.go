// ABOUTME: Configuration loading and parsing for meshterm
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete meshterm configuration
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Console ConsoleConfig `yaml:"console"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeConfig holds identity and storage configuration
type NodeConfig struct {
	// DataDir is where identity, contacts and preferences are persisted
	DataDir string `yaml:"data_dir"`
	// MaxContacts bounds the contact store; 0 uses the built-in default
	MaxContacts int `yaml:"max_contacts"`
}

// MeshConfig holds the UDP mesh transport configuration
type MeshConfig struct {
	// ListenAddr is the local UDP address packets are received on
	ListenAddr string `yaml:"listen_addr"`
	// BroadcastAddr is where outgoing packets are sent (typically a
	// subnet broadcast address)
	BroadcastAddr string `yaml:"broadcast_addr"`

	AckTimeoutBase time.Duration `yaml:"-"`
	DedupeWindow   time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	AckTimeoutBaseRaw string `yaml:"ack_timeout_base"`
	DedupeWindowRaw   string `yaml:"dedupe_window"`
}

// ConsoleConfig holds the secondary console port configuration.
// The primary port (stdio) is always on and needs no configuration.
type ConsoleConfig struct {
	Serial1Addr string `yaml:"serial1_addr"`
	Serial2Addr string `yaml:"serial2_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Node.DataDir == "" {
		return fmt.Errorf("node.data_dir is required")
	}
	if c.Node.MaxContacts < 0 {
		return fmt.Errorf("node.max_contacts must not be negative")
	}

	if c.Mesh.ListenAddr == "" {
		return fmt.Errorf("mesh.listen_addr is required")
	}
	if c.Mesh.BroadcastAddr == "" {
		return fmt.Errorf("mesh.broadcast_addr is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Mesh.AckTimeoutBaseRaw != "" {
		cfg.Mesh.AckTimeoutBase, err = time.ParseDuration(cfg.Mesh.AckTimeoutBaseRaw)
		if err != nil {
			return fmt.Errorf("parsing ack_timeout_base %q: %w", cfg.Mesh.AckTimeoutBaseRaw, err)
		}
	}

	if cfg.Mesh.DedupeWindowRaw != "" {
		cfg.Mesh.DedupeWindow, err = time.ParseDuration(cfg.Mesh.DedupeWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_window %q: %w", cfg.Mesh.DedupeWindowRaw, err)
		}
	}

	return nil
}
