package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	NATS     NATSConfig     `yaml:"nats"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig guards the administrative batch operations.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tokens  []string `yaml:"tokens"`
}

// NATSConfig configures the change-notification listener.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// SnapshotConfig tunes rebuild scheduling. Durations are in seconds.
type SnapshotConfig struct {
	DebounceProjectSeconds int `yaml:"debounce_project_seconds"`
	DebounceNestedSeconds  int `yaml:"debounce_nested_seconds"`
	DebounceEntrySeconds   int `yaml:"debounce_entry_seconds"`
	BatchSize              int `yaml:"batch_size"`
	BatchPauseSeconds      int `yaml:"batch_pause_seconds"`
}

// DebounceProject returns the delay after a project document write.
func (c SnapshotConfig) DebounceProject() time.Duration {
	return time.Duration(c.DebounceProjectSeconds) * time.Second
}

// DebounceNested returns the delay after an unclassified nested write.
func (c SnapshotConfig) DebounceNested() time.Duration {
	return time.Duration(c.DebounceNestedSeconds) * time.Second
}

// DebounceEntry returns the delay after an entry, test, or material
// request write.
func (c SnapshotConfig) DebounceEntry() time.Duration {
	return time.Duration(c.DebounceEntrySeconds) * time.Second
}

// BatchPause returns the minimum spacing between rebuild batches.
func (c SnapshotConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseSeconds) * time.Second
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "reportsnap.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "site.changes",
		},
		Snapshot: SnapshotConfig{
			DebounceProjectSeconds: 300,
			DebounceNestedSeconds:  120,
			DebounceEntrySeconds:   60,
			BatchSize:              5,
			BatchPauseSeconds:      1,
		},
	}

	if path := os.Getenv("REPORTSNAP_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("REPORTSNAP_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("REPORTSNAP_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REPORTSNAP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("REPORTSNAP_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("REPORTSNAP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if url := os.Getenv("REPORTSNAP_NATS_URL"); url != "" {
		cfg.NATS.URL = url
		cfg.NATS.Enabled = true
	}
	if subject := os.Getenv("REPORTSNAP_NATS_SUBJECT"); subject != "" {
		cfg.NATS.Subject = subject
	}
	if token := os.Getenv("REPORTSNAP_AUTH_TOKEN"); token != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.Tokens = append(cfg.Auth.Tokens, token)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
