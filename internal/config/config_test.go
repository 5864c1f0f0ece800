package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Cluster.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be 127.0.0.1, got %s", config.Cluster.Host)
	}
	if config.Cluster.TransportMinPort != 20000 {
		t.Errorf("Expected default transport min port to be 20000, got %d", config.Cluster.TransportMinPort)
	}
	if config.Health.Tries != 10 {
		t.Errorf("Expected default health tries to be 10, got %d", config.Health.Tries)
	}
	if config.Health.Multiplier != 1.75 {
		t.Errorf("Expected default backoff multiplier to be 1.75, got %g", config.Health.Multiplier)
	}
	if config.Health.MaxDelay != 15*time.Second {
		t.Errorf("Expected default backoff ceiling to be 15s, got %v", config.Health.MaxDelay)
	}
	if config.Driver.Mode != "normal" {
		t.Errorf("Expected default key mode to be normal, got %s", config.Driver.Mode)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test-config.yaml")

	configContent := `
cluster:
  host: "10.0.0.5"
  nodes_amount: 3
  transport_min_port: 21000
  rest_min_port: 9000

driver:
  binary: "/usr/local/bin/bobp"
  count: 9
  payload: 100
  threads: 4

run:
  settle_delay: 2s
  doubled_exist: true

logging:
  level: "debug"
  format: "json"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cluster.Host != "10.0.0.5" {
		t.Errorf("Expected host to be 10.0.0.5, got %s", config.Cluster.Host)
	}
	if config.Cluster.NodesAmount != 3 {
		t.Errorf("Expected 3 nodes, got %d", config.Cluster.NodesAmount)
	}
	if config.Driver.Count != 9 {
		t.Errorf("Expected count 9, got %d", config.Driver.Count)
	}
	if config.Run.SettleDelay != 2*time.Second {
		t.Errorf("Expected settle delay 2s, got %v", config.Run.SettleDelay)
	}
	if !config.Run.DoubledExist {
		t.Error("Expected doubled exist enabled")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
	// Unset fields keep their defaults
	if config.Health.Tries != 10 {
		t.Errorf("Expected default health tries to survive, got %d", config.Health.Tries)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("CHAOS_CLUSTER_HOST", "env-host")
	os.Setenv("CHAOS_NODES_AMOUNT", "5")
	os.Setenv("CHAOS_DRIVER_COUNT", "500")
	os.Setenv("CHAOS_DRIVER_USER", "admin")
	os.Setenv("CHAOS_LOG_LEVEL", "error")

	defer func() {
		os.Unsetenv("CHAOS_CLUSTER_HOST")
		os.Unsetenv("CHAOS_NODES_AMOUNT")
		os.Unsetenv("CHAOS_DRIVER_COUNT")
		os.Unsetenv("CHAOS_DRIVER_USER")
		os.Unsetenv("CHAOS_LOG_LEVEL")
	}()

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cluster.Host != "env-host" {
		t.Errorf("Expected host env-host, got %s", config.Cluster.Host)
	}
	if config.Cluster.NodesAmount != 5 {
		t.Errorf("Expected 5 nodes, got %d", config.Cluster.NodesAmount)
	}
	if config.Driver.Count != 500 {
		t.Errorf("Expected count 500, got %d", config.Driver.Count)
	}
	if config.Driver.User != "admin" {
		t.Errorf("Expected user admin, got %s", config.Driver.User)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero nodes", func(c *Config) { c.Cluster.NodesAmount = 0 }},
		{"bad transport port", func(c *Config) { c.Cluster.TransportMinPort = 0 }},
		{"transport range overflow", func(c *Config) {
			c.Cluster.TransportMinPort = 65530
			c.Cluster.NodesAmount = 10
		}},
		{"empty binary", func(c *Config) { c.Driver.Binary = "" }},
		{"zero count", func(c *Config) { c.Driver.Count = 0 }},
		{"bad key size", func(c *Config) { c.Driver.KeySize = 12 }},
		{"bad mode", func(c *Config) { c.Driver.Mode = "gaussian" }},
		{"zero tries", func(c *Config) { c.Health.Tries = 0 }},
		{"multiplier below one", func(c *Config) { c.Health.Multiplier = 0.5 }},
		{"ceiling below delay", func(c *Config) {
			c.Health.Delay = 20 * time.Second
			c.Health.MaxDelay = 15 * time.Second
		}},
		{"journal without path", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Path = ""
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.toml")
	if err := os.WriteFile(configFile, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	if _, err := Load(configFile); err == nil {
		t.Error("Expected unsupported format to fail")
	}
}
