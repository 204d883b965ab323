package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoadDirectoryConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "directory.yaml", `
bind_addr: "0.0.0.0:7000"
peers_file: "/var/lib/hiconsensus/peers.json"
metrics_addr: "127.0.0.1:9100"
`)

	cfg, err := LoadDirectoryConfig(path)
	if err != nil {
		t.Fatalf("LoadDirectoryConfig: %v", err)
	}
	if cfg.BindAddr != "0.0.0.0:7000" {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.PeersFile != "/var/lib/hiconsensus/peers.json" {
		t.Errorf("PeersFile = %q", cfg.PeersFile)
	}
	if cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1 (defaulted)", cfg.Version)
	}
}

func TestLoadDirectoryConfigVersionTooNew(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "directory.yaml", "version: 99\nbind_addr: \"0.0.0.0:7000\"\n")

	_, err := LoadDirectoryConfig(path)
	if !errors.Is(err, ErrConfigVersionTooNew) {
		t.Errorf("err = %v, want ErrConfigVersionTooNew", err)
	}
}

func TestLoadDirectoryConfigMissingFile(t *testing.T) {
	if _, err := LoadDirectoryConfig("/nonexistent/directory.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFailureDetectorConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "fd.yaml", `
bind_addr: "0.0.0.0:7100"
directory_addr: "127.0.0.1:7000"
timeout: "200ms"
`)

	cfg, err := LoadFailureDetectorConfig(path)
	if err != nil {
		t.Fatalf("LoadFailureDetectorConfig: %v", err)
	}
	if cfg.DirectoryAddr != "127.0.0.1:7000" {
		t.Errorf("DirectoryAddr = %q", cfg.DirectoryAddr)
	}
	if cfg.Timeout.Milliseconds() != 200 {
		t.Errorf("Timeout = %v, want 200ms", cfg.Timeout)
	}
}

func TestLoadFailureDetectorConfigInvalidTimeout(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "fd.yaml", `
bind_addr: "0.0.0.0:7100"
directory_addr: "127.0.0.1:7000"
timeout: "not-a-duration"
`)

	if _, err := LoadFailureDetectorConfig(path); err == nil {
		t.Error("expected error for invalid timeout")
	}
}

func TestLoadAgentConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "agent.yaml", `
label: "alice"
bind_addr: "0.0.0.0:7200"
directory_addr: "127.0.0.1:7000"
`)

	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.Label != "alice" {
		t.Errorf("Label = %q", cfg.Label)
	}
	if cfg.DirectoryAddr != "127.0.0.1:7000" {
		t.Errorf("DirectoryAddr = %q", cfg.DirectoryAddr)
	}
}

func TestCheckConfigFilePermissionsRejectsWorldReadable(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "agent.yaml", "label: alice\n")
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadAgentConfig(path)
	if err == nil {
		t.Error("expected error for world-readable config file")
	}
}
