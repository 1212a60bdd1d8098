// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
node:
  data_dir: "./data"
  max_contacts: 150

mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr: "192.168.1.255:7654"
  ack_timeout_base: "500ms"
  dedupe_window: "5m"

console:
  serial1_addr: "127.0.0.1:4001"
  serial2_addr: "127.0.0.1:4002"

logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify node config
	if cfg.Node.DataDir != "./data" {
		t.Errorf("Node.DataDir = %q, want %q", cfg.Node.DataDir, "./data")
	}
	if cfg.Node.MaxContacts != 150 {
		t.Errorf("Node.MaxContacts = %d, want 150", cfg.Node.MaxContacts)
	}

	// Verify mesh config with duration parsing
	if cfg.Mesh.ListenAddr != "0.0.0.0:7654" {
		t.Errorf("Mesh.ListenAddr = %q, want %q", cfg.Mesh.ListenAddr, "0.0.0.0:7654")
	}
	if cfg.Mesh.BroadcastAddr != "192.168.1.255:7654" {
		t.Errorf("Mesh.BroadcastAddr = %q, want %q", cfg.Mesh.BroadcastAddr, "192.168.1.255:7654")
	}
	if cfg.Mesh.AckTimeoutBase != 500*time.Millisecond {
		t.Errorf("Mesh.AckTimeoutBase = %v, want %v", cfg.Mesh.AckTimeoutBase, 500*time.Millisecond)
	}
	if cfg.Mesh.DedupeWindow != 5*time.Minute {
		t.Errorf("Mesh.DedupeWindow = %v, want %v", cfg.Mesh.DedupeWindow, 5*time.Minute)
	}

	// Verify console config
	if cfg.Console.Serial1Addr != "127.0.0.1:4001" {
		t.Errorf("Console.Serial1Addr = %q, want %q", cfg.Console.Serial1Addr, "127.0.0.1:4001")
	}
	if cfg.Console.Serial2Addr != "127.0.0.1:4002" {
		t.Errorf("Console.Serial2Addr = %q, want %q", cfg.Console.Serial2Addr, "127.0.0.1:4002")
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	// Set environment variables for testing
	t.Setenv("TEST_DATA_DIR", "/var/lib/meshterm")
	t.Setenv("TEST_BCAST", "10.0.0.255:7654")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
node:
  data_dir: "${TEST_DATA_DIR}"

mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr: "${TEST_BCAST}"

logging:
  level: "info"
  format: "text"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify env var expansion
	if cfg.Node.DataDir != "/var/lib/meshterm" {
		t.Errorf("Node.DataDir = %q, want %q", cfg.Node.DataDir, "/var/lib/meshterm")
	}
	if cfg.Mesh.BroadcastAddr != "10.0.0.255:7654" {
		t.Errorf("Mesh.BroadcastAddr = %q, want %q", cfg.Mesh.BroadcastAddr, "10.0.0.255:7654")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Invalid YAML content
	configContent := `
mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr "missing colon"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
node:
  data_dir: "./data"

mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr: "192.168.1.255:7654"
  ack_timeout_base: "invalid-duration"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing data_dir",
			configContent: `
node:
  data_dir: ""
mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr: "192.168.1.255:7654"
`,
			wantErrSubstr: "node.data_dir is required",
		},
		{
			name: "missing listen_addr",
			configContent: `
node:
  data_dir: "./data"
mesh:
  listen_addr: ""
  broadcast_addr: "192.168.1.255:7654"
`,
			wantErrSubstr: "mesh.listen_addr is required",
		},
		{
			name: "missing broadcast_addr",
			configContent: `
node:
  data_dir: "./data"
mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr: ""
`,
			wantErrSubstr: "mesh.broadcast_addr is required",
		},
		{
			name: "negative max_contacts",
			configContent: `
node:
  data_dir: "./data"
  max_contacts: -1
mesh:
  listen_addr: "0.0.0.0:7654"
  broadcast_addr: "192.168.1.255:7654"
`,
			wantErrSubstr: "node.max_contacts must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			err := os.WriteFile(configPath, []byte(tt.configContent), 0644)
			if err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err = Load(configPath)
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}

			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
