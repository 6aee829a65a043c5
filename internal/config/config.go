package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete twinpane backend configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Scan     ScanConfig     `yaml:"scan"`
	Transfer TransferConfig `yaml:"transfer"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ScanConfig configures scan previews
type ScanConfig struct {
	ProgressIntervalMs int      `yaml:"progress_interval_ms"`
	StatTimeoutSec     int      `yaml:"stat_timeout_sec"`
	IgnoreGlobs        []string `yaml:"ignore_globs"`
}

// TransferConfig configures transfer execution
type TransferConfig struct {
	ProgressIntervalMs int `yaml:"progress_interval_ms"`
	ChunkSizeBytes     int `yaml:"chunk_size_bytes"`
	RetentionSec       int `yaml:"retention_sec"`
	DecisionTimeoutSec int `yaml:"decision_timeout_sec"`
	MaxConflictResults int `yaml:"max_conflict_results"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Server.ListenAddr = os.ExpandEnv(c.Server.ListenAddr)
	c.Log.Level = os.ExpandEnv(c.Log.Level)
	for i, glob := range c.Scan.IgnoreGlobs {
		c.Scan.IgnoreGlobs[i] = os.ExpandEnv(glob)
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:8830"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Scan.ProgressIntervalMs <= 0 {
		c.Scan.ProgressIntervalMs = 100
	}
	if c.Scan.StatTimeoutSec <= 0 {
		c.Scan.StatTimeoutSec = 10
	}
	if c.Transfer.ProgressIntervalMs <= 0 {
		c.Transfer.ProgressIntervalMs = 100
	}
	if c.Transfer.ChunkSizeBytes <= 0 {
		c.Transfer.ChunkSizeBytes = 1 << 20
	}
	if c.Transfer.RetentionSec <= 0 {
		c.Transfer.RetentionSec = 60
	}
	if c.Transfer.DecisionTimeoutSec <= 0 {
		c.Transfer.DecisionTimeoutSec = 300
	}
	if c.Transfer.MaxConflictResults <= 0 {
		c.Transfer.MaxConflictResults = 100
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error")
	}
	if c.Transfer.ChunkSizeBytes < 4096 {
		return fmt.Errorf("transfer.chunk_size_bytes must be at least 4096")
	}
	return nil
}

// ScanProgressInterval returns the scan progress interval as a duration.
func (c *Config) ScanProgressInterval() time.Duration {
	return time.Duration(c.Scan.ProgressIntervalMs) * time.Millisecond
}

// StatTimeout returns the per-stat syscall timeout as a duration.
func (c *Config) StatTimeout() time.Duration {
	return time.Duration(c.Scan.StatTimeoutSec) * time.Second
}

// TransferProgressInterval returns the transfer progress interval as a duration.
func (c *Config) TransferProgressInterval() time.Duration {
	return time.Duration(c.Transfer.ProgressIntervalMs) * time.Millisecond
}

// Retention returns how long finished operations stay queryable.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Transfer.RetentionSec) * time.Second
}

// DecisionTimeout returns the stop-policy conflict decision timeout.
func (c *Config) DecisionTimeout() time.Duration {
	return time.Duration(c.Transfer.DecisionTimeoutSec) * time.Second
}
