// Package config handles configuration loading for meshterm.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	node:
//	  data_dir: "${MESHTERM_DATA_DIR}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	mesh:
//	  ack_timeout_base: "500ms"
//	  dedupe_window: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Node identity and storage:
//
//	node:
//	  data_dir: "/var/lib/meshterm"
//	  max_contacts: 100
//
// Mesh transport:
//
//	mesh:
//	  listen_addr: "0.0.0.0:7654"
//	  broadcast_addr: "192.168.1.255:7654"
//	  ack_timeout_base: "500ms"
//	  dedupe_window: "5m"
//
// Secondary console ports (TCP bridges; the primary stdio port is
// always on):
//
//	console:
//	  serial1_addr: "127.0.0.1:4001"
//	  serial2_addr: "127.0.0.1:4002"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/meshterm/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
