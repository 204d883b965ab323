package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// checkConfigFilePermissions rejects a config file whose permission bits
// grant any access to group or others (mode & 0077 != 0). Config files
// carry network topology and bind addresses. A file that cannot be stat'ed
// passes here and is left for the caller's read to report.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// LoadDirectoryConfig loads directory process configuration from a YAML file.
func LoadDirectoryConfig(path string) (*DirectoryConfig, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg DirectoryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}

	return &cfg, nil
}

// LoadFailureDetectorConfig loads failure-detector configuration from a
// YAML file. The heartbeat timeout is given as a duration string
// (e.g. "200ms") and parsed after unmarshaling.
func LoadFailureDetectorConfig(path string) (*FailureDetectorConfig, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var rawConfig struct {
		BindAddr      string `yaml:"bind_addr"`
		DirectoryAddr string `yaml:"directory_addr"`
		Timeout       string `yaml:"timeout"`
		MetricsAddr   string `yaml:"metrics_addr,omitempty"`
	}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	timeout, err := time.ParseDuration(rawConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}

	return &FailureDetectorConfig{
		BindAddr:      rawConfig.BindAddr,
		DirectoryAddr: rawConfig.DirectoryAddr,
		Timeout:       timeout,
		MetricsAddr:   rawConfig.MetricsAddr,
	}, nil
}

// LoadAgentConfig loads consensus agent configuration from a YAML file.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}
