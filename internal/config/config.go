package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Cluster ClusterConfig `yaml:"cluster" json:"cluster"`
	Driver  DriverConfig  `yaml:"driver" json:"driver"`
	Health  HealthConfig  `yaml:"health" json:"health"`
	Run     RunConfig     `yaml:"run" json:"run"`
	Journal JournalConfig `yaml:"journal" json:"journal"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ClusterConfig describes the already-deployed cluster under test
type ClusterConfig struct {
	Host             string `yaml:"host" json:"host"`
	NodesAmount      int    `yaml:"nodes_amount" json:"nodes_amount"`
	TransportMinPort int    `yaml:"transport_min_port" json:"transport_min_port"`
	RestMinPort      int    `yaml:"rest_min_port" json:"rest_min_port"`
}

// DriverConfig describes the external workload generator binary and the
// workload shape shared by every invocation
type DriverConfig struct {
	Binary   string `yaml:"binary" json:"binary"`
	Count    uint64 `yaml:"count" json:"count"`
	Payload  int    `yaml:"payload" json:"payload"`
	Threads  int    `yaml:"threads" json:"threads"`
	Mode     string `yaml:"mode" json:"mode"`
	KeySize  int    `yaml:"key_size" json:"key_size"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
}

// HealthConfig is the bounded retry policy for the readiness poll
type HealthConfig struct {
	Tries      int           `yaml:"tries" json:"tries"`
	Delay      time.Duration `yaml:"delay" json:"delay"`
	Multiplier float64       `yaml:"multiplier" json:"multiplier"`
	MaxDelay   time.Duration `yaml:"max_delay" json:"max_delay"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// RunConfig holds the orchestration timing knobs and optional checks
type RunConfig struct {
	// SettleDelay is the pause between a baseline write and stopping the
	// node that received it, so the data can replicate
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
	// StartWait is the extra pause after all nodes report healthy and
	// before the final verification
	StartWait time.Duration `yaml:"start_wait" json:"start_wait"`

	DoubledExist      bool   `yaml:"doubled_exist" json:"doubled_exist"`
	DoubledExistFirst uint64 `yaml:"doubled_exist_first" json:"doubled_exist_first"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Host:             "127.0.0.1",
			NodesAmount:      4,
			TransportMinPort: 20000,
			RestMinPort:      8000,
		},
		Driver: DriverConfig{
			Binary:  "./bobp",
			Count:   10000,
			Payload: 1024,
			Threads: 1,
			Mode:    "normal",
			KeySize: 8,
		},
		Health: HealthConfig{
			Tries:      10,
			Delay:      1 * time.Second,
			Multiplier: 1.75,
			MaxDelay:   15 * time.Second,
			Timeout:    5 * time.Second,
		},
		Run: RunConfig{
			SettleDelay:       10 * time.Second,
			StartWait:         1 * time.Second,
			DoubledExist:      false,
			DoubledExistFirst: 0,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "./data/journal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func loadFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

func loadFromEnvironment(config *Config) {
	// Cluster configuration
	if host := os.Getenv("CHAOS_CLUSTER_HOST"); host != "" {
		config.Cluster.Host = host
	}
	if amount := os.Getenv("CHAOS_NODES_AMOUNT"); amount != "" {
		if n, err := strconv.Atoi(amount); err == nil {
			config.Cluster.NodesAmount = n
		}
	}
	if port := os.Getenv("CHAOS_TRANSPORT_MIN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Cluster.TransportMinPort = p
		}
	}
	if port := os.Getenv("CHAOS_REST_MIN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Cluster.RestMinPort = p
		}
	}

	// Driver configuration
	if binary := os.Getenv("CHAOS_DRIVER_BINARY"); binary != "" {
		config.Driver.Binary = binary
	}
	if count := os.Getenv("CHAOS_DRIVER_COUNT"); count != "" {
		if c, err := strconv.ParseUint(count, 10, 64); err == nil {
			config.Driver.Count = c
		}
	}
	if payload := os.Getenv("CHAOS_DRIVER_PAYLOAD"); payload != "" {
		if p, err := strconv.Atoi(payload); err == nil {
			config.Driver.Payload = p
		}
	}
	if threads := os.Getenv("CHAOS_DRIVER_THREADS"); threads != "" {
		if t, err := strconv.Atoi(threads); err == nil {
			config.Driver.Threads = t
		}
	}
	if user := os.Getenv("CHAOS_DRIVER_USER"); user != "" {
		config.Driver.User = user
	}
	if password := os.Getenv("CHAOS_DRIVER_PASSWORD"); password != "" {
		config.Driver.Password = password
	}

	// Logging configuration
	if level := os.Getenv("CHAOS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("CHAOS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

func (c *Config) Validate() error {
	// Cluster validation
	if c.Cluster.Host == "" {
		return fmt.Errorf("cluster host cannot be empty")
	}
	if c.Cluster.NodesAmount < 1 {
		return fmt.Errorf("nodes amount must be positive: %d", c.Cluster.NodesAmount)
	}
	if c.Cluster.TransportMinPort <= 0 || c.Cluster.TransportMinPort > 65535 {
		return fmt.Errorf("invalid transport min port: %d", c.Cluster.TransportMinPort)
	}
	if c.Cluster.RestMinPort <= 0 || c.Cluster.RestMinPort > 65535 {
		return fmt.Errorf("invalid rest min port: %d", c.Cluster.RestMinPort)
	}
	if c.Cluster.TransportMinPort+c.Cluster.NodesAmount-1 > 65535 {
		return fmt.Errorf("transport port range exceeds 65535 for %d nodes", c.Cluster.NodesAmount)
	}
	if c.Cluster.RestMinPort+c.Cluster.NodesAmount-1 > 65535 {
		return fmt.Errorf("rest port range exceeds 65535 for %d nodes", c.Cluster.NodesAmount)
	}

	// Driver validation
	if c.Driver.Binary == "" {
		return fmt.Errorf("driver binary cannot be empty")
	}
	if c.Driver.Count == 0 {
		return fmt.Errorf("record count must be positive")
	}
	if c.Driver.Payload <= 0 {
		return fmt.Errorf("payload size must be positive: %d", c.Driver.Payload)
	}
	if c.Driver.Threads <= 0 {
		return fmt.Errorf("thread count must be positive: %d", c.Driver.Threads)
	}
	if c.Driver.Mode != "random" && c.Driver.Mode != "normal" {
		return fmt.Errorf("invalid key generation mode: %s", c.Driver.Mode)
	}
	if c.Driver.KeySize != 8 && c.Driver.KeySize != 16 {
		return fmt.Errorf("key size must be 8 or 16: %d", c.Driver.KeySize)
	}

	// Health validation
	if c.Health.Tries <= 0 {
		return fmt.Errorf("health tries must be positive: %d", c.Health.Tries)
	}
	if c.Health.Delay <= 0 {
		return fmt.Errorf("health delay must be positive")
	}
	if c.Health.Multiplier < 1.0 {
		return fmt.Errorf("health backoff multiplier must be at least 1.0: %g", c.Health.Multiplier)
	}
	if c.Health.MaxDelay < c.Health.Delay {
		return fmt.Errorf("health max delay must be at least the initial delay")
	}

	// Run validation
	if c.Run.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.Run.StartWait < 0 {
		return fmt.Errorf("start wait cannot be negative")
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal path cannot be empty when the journal is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
