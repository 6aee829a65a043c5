package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	content := `
server:
  listen_addr: "127.0.0.1:9000"

log:
  level: "debug"
  pretty: true

scan:
  progress_interval_ms: 250
  ignore_globs:
    - "**/*.tmp"
    - "**/.DS_Store"

transfer:
  chunk_size_bytes: 65536
  retention_sec: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("expected listen addr 127.0.0.1:9000, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.ScanProgressInterval() != 250*time.Millisecond {
		t.Errorf("expected 250ms scan interval, got %v", cfg.ScanProgressInterval())
	}
	if len(cfg.Scan.IgnoreGlobs) != 2 {
		t.Errorf("expected 2 ignore globs, got %d", len(cfg.Scan.IgnoreGlobs))
	}
	if cfg.Transfer.ChunkSizeBytes != 65536 {
		t.Errorf("expected chunk size 65536, got %d", cfg.Transfer.ChunkSizeBytes)
	}
	if cfg.Retention() != 30*time.Second {
		t.Errorf("expected 30s retention, got %v", cfg.Retention())
	}

	// Defaults fill unset fields
	if cfg.Transfer.DecisionTimeoutSec != 300 {
		t.Errorf("expected default decision timeout 300, got %d", cfg.Transfer.DecisionTimeoutSec)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.ListenAddr == "" {
		t.Error("expected a default listen addr")
	}
	if cfg.Transfer.ChunkSizeBytes != 1<<20 {
		t.Errorf("expected 1MiB default chunk size, got %d", cfg.Transfer.ChunkSizeBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid log level to be rejected")
	}
}

func TestValidateRejectsTinyChunks(t *testing.T) {
	cfg := Default()
	cfg.Transfer.ChunkSizeBytes = 512
	if err := cfg.Validate(); err == nil {
		t.Error("expected undersized chunk size to be rejected")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TWINPANE_ADDR", "0.0.0.0:8000")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen_addr: "$TWINPANE_ADDR"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != "0.0.0.0:8000" {
		t.Errorf("expected env-expanded addr, got %s", cfg.Server.ListenAddr)
	}
}
