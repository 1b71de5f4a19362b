package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path == "" {
		t.Error("Default database path should be set")
	}
	if cfg.Daemon.SocketPath == "" {
		t.Error("Default socket path should be set")
	}
	if cfg.Move.MaxRetries != 3 {
		t.Errorf("Default MaxRetries = %d, want 3", cfg.Move.MaxRetries)
	}
	if cfg.Move.RetryBaseDelay() != 50*time.Millisecond {
		t.Errorf("Default retry base delay = %v, want 50ms", cfg.Move.RetryBaseDelay())
	}
	if cfg.Move.NotifyRetries != 3 {
		t.Errorf("Default NotifyRetries = %d, want 3", cfg.Move.NotifyRetries)
	}
	if cfg.Events.Debounce() != 100*time.Millisecond {
		t.Errorf("Default debounce = %v, want 100ms", cfg.Events.Debounce())
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Move.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Move.MaxRetries)
	}
}

func TestLoadFromFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	configDir := filepath.Join(configHome, "tablero")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	content := []byte(`
database:
  path: /var/lib/tablero/board.db
move:
  max_retries: 7
  retry_base_delay_ms: 25
events:
  debounce_ms: 250
`)
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), content, 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/var/lib/tablero/board.db" {
		t.Errorf("Database path = %q, want configured value", cfg.Database.Path)
	}
	if cfg.Move.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", cfg.Move.MaxRetries)
	}
	if cfg.Move.RetryBaseDelay() != 25*time.Millisecond {
		t.Errorf("Retry base delay = %v, want 25ms", cfg.Move.RetryBaseDelay())
	}
	if cfg.Events.Debounce() != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", cfg.Events.Debounce())
	}

	// Unspecified values fall back to defaults.
	if cfg.Move.NotifyRetries != 3 {
		t.Errorf("NotifyRetries = %d, want default 3", cfg.Move.NotifyRetries)
	}
	if cfg.Daemon.SocketPath == "" {
		t.Error("Socket path should fall back to default")
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Move.MaxRetries = 9

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Move.MaxRetries != 9 {
		t.Errorf("Reloaded MaxRetries = %d, want 9", loaded.Move.MaxRetries)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	configDir := filepath.Join(configHome, "tablero")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load should fail on malformed YAML")
	}
}
