// Package config loads the engine configuration from the user's
// config directory, applying defaults for anything missing.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Move     MoveConfig     `yaml:"move"`
	Events   EventsConfig   `yaml:"events"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DaemonConfig locates the notification daemon socket.
type DaemonConfig struct {
	SocketPath string `yaml:"socket_path"`
}

// MoveConfig tunes the mover's retry behavior. These were once
// hard-coded; keep them here so operators can tune contention handling
// without a rebuild.
type MoveConfig struct {
	MaxRetries       int `yaml:"max_retries"`
	RetryBaseDelayMS int `yaml:"retry_base_delay_ms"`
	NotifyRetries    int `yaml:"notify_retries"`
}

// RetryBaseDelay returns the backoff base as a duration.
func (m MoveConfig) RetryBaseDelay() time.Duration {
	return time.Duration(m.RetryBaseDelayMS) * time.Millisecond
}

// EventsConfig tunes client-side event batching.
type EventsConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Debounce returns the batching window as a duration.
func (e EventsConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMS) * time.Millisecond
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads config from the user's config directory.
// Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return Default(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Fill in any missing values with defaults
	config.applyDefaults()

	return &config, nil
}

// Save saves the config to the user's config directory
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o644)
}

// applyDefaults fills in any missing values
func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Database.Path = filepath.Join(home, ".tablero", "board.db")
		}
	}
	if c.Daemon.SocketPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Daemon.SocketPath = filepath.Join(home, ".tablero", "tablero.sock")
		}
	}
	if c.Move.MaxRetries <= 0 {
		c.Move.MaxRetries = 3
	}
	if c.Move.RetryBaseDelayMS <= 0 {
		c.Move.RetryBaseDelayMS = 50
	}
	if c.Move.NotifyRetries <= 0 {
		c.Move.NotifyRetries = 3
	}
	if c.Events.DebounceMS <= 0 {
		c.Events.DebounceMS = 100
	}
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	// Try XDG_CONFIG_HOME first
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "tablero", "config.yaml"), nil
	}

	// Fall back to ~/.config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tablero", "config.yaml"), nil
}
