// Package config loads and validates the YAML configuration for the
// orchestration core.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Queue         QueueConfig         `yaml:"queue"`
	Backup        BackupConfig        `yaml:"backup"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// QueueConfig holds the work queue's bounds and retry policy
type QueueConfig struct {
	Capacity    int `yaml:"capacity"`
	MaxAttempts int `yaml:"max_attempts"`
}

// BackupConfig selects and configures the backup store
type BackupConfig struct {
	Store    string      `yaml:"store"` // file, memory, redis
	Dir      string      `yaml:"dir"`
	Prefix   string      `yaml:"prefix"`
	Schedule string      `yaml:"schedule"` // cron expression; empty disables periodic snapshots
	Redis    RedisConfig `yaml:"redis"`
}

// RedisConfig holds redis connection settings for the redis backup store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PipelineConfig holds orchestrator execution settings
type PipelineConfig struct {
	Mode         string   `yaml:"mode"` // sequential, fanout
	FailFast     bool     `yaml:"fail_fast"`
	AgentTimeout Duration `yaml:"agent_timeout"`
	PollInterval Duration `yaml:"poll_interval"`
}

// Duration wraps time.Duration so YAML files can use "30s" style values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ObservabilityConfig holds metrics and tracing settings
type ObservabilityConfig struct {
	MetricsPort int  `yaml:"metrics_port"`
	Tracing     bool `yaml:"tracing"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			Capacity:    10000,
			MaxAttempts: 3,
		},
		Backup: BackupConfig{
			Store:  "file",
			Dir:    "backups",
			Prefix: "snapshot",
		},
		Pipeline: PipelineConfig{
			Mode:         "sequential",
			PollInterval: Duration(100 * time.Millisecond),
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9090,
		},
	}
}

// Load loads configuration from a YAML file, applying defaults for
// unset fields and environment fallbacks for redis credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Queue.Capacity < 0 {
		return fmt.Errorf("queue capacity must not be negative")
	}
	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("queue max_attempts must not be negative")
	}

	switch c.Backup.Store {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("unknown backup store %q (want file, memory, or redis)", c.Backup.Store)
	}
	if c.Backup.Store == "file" && c.Backup.Dir == "" {
		return fmt.Errorf("backup dir is required for the file store")
	}
	if c.Backup.Store == "redis" && c.Backup.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for the redis store")
	}

	switch c.Pipeline.Mode {
	case "sequential", "fanout":
	default:
		return fmt.Errorf("unknown pipeline mode %q (want sequential or fanout)", c.Pipeline.Mode)
	}
	if c.Pipeline.AgentTimeout < 0 {
		return fmt.Errorf("agent_timeout must not be negative")
	}

	return nil
}

// applyEnv fills redis settings from the environment when the file left
// them empty, matching how deployments inject credentials.
func applyEnv(cfg *Config) {
	if cfg.Backup.Redis.Addr == "" {
		cfg.Backup.Redis.Addr = os.Getenv("GENFORGE_REDIS_ADDR")
	}
	if cfg.Backup.Redis.Password == "" {
		cfg.Backup.Redis.Password = os.Getenv("GENFORGE_REDIS_PASSWORD")
	}
	if cfg.Backup.Redis.DB == 0 {
		if db, err := strconv.Atoi(os.Getenv("GENFORGE_REDIS_DB")); err == nil {
			cfg.Backup.Redis.DB = db
		}
	}
}
