// Package config loads optional YAML configuration for each of the three
// process binaries. The CLI arguments documented in spec.md §6 remain
// sufficient on their own; a -config file is a pure supplement, and any
// CLI flag given alongside one overrides the corresponding config value.
package config

import "time"

// DirectoryConfig configures the directory process.
type DirectoryConfig struct {
	Version     int    `yaml:"version,omitempty"`
	BindAddr    string `yaml:"bind_addr"`
	PeersFile   string `yaml:"peers_file"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// FailureDetectorConfig configures the failure-detector process.
type FailureDetectorConfig struct {
	BindAddr      string        `yaml:"bind_addr"`
	DirectoryAddr string        `yaml:"directory_addr"`
	Timeout       time.Duration `yaml:"-"`
	MetricsAddr   string        `yaml:"metrics_addr,omitempty"`
}

// AgentConfig configures a consensus agent process.
type AgentConfig struct {
	Label         string `yaml:"label"`
	BindAddr      string `yaml:"bind_addr"`
	DirectoryAddr string `yaml:"directory_addr"`
	MetricsAddr   string `yaml:"metrics_addr,omitempty"`
}
