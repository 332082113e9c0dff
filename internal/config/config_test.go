package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Queue.MaxSize != 100 {
		t.Errorf("queue max size = %d, want 100", cfg.Queue.MaxSize)
	}
	if cfg.Broker.MaxQueueSize != 1000 || cfg.Broker.MessageTTL != time.Hour {
		t.Errorf("broker defaults = %+v", cfg.Broker)
	}
	if cfg.Monitor.ErrorRateThreshold != 0.1 || cfg.Monitor.ActivityTimeout != 10*time.Minute {
		t.Errorf("monitor defaults = %+v", cfg.Monitor)
	}
	if cfg.Drift.Window != 100 || cfg.Drift.Threshold != 0.2 {
		t.Errorf("drift defaults = %+v", cfg.Drift)
	}
	if cfg.Repair.MaxRetries != 3 {
		t.Errorf("repair retries = %d, want 3", cfg.Repair.MaxRetries)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  model: claude-opus-4
  max_tokens: 2048
queue:
  max_size: 10
broker:
  message_ttl: 30m
monitor:
  error_rate_threshold: 0.25
logging:
  level: debug
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Anthropic.Model != "claude-opus-4" || cfg.Anthropic.MaxTokens != 2048 {
		t.Errorf("anthropic = %+v", cfg.Anthropic)
	}
	if cfg.Queue.MaxSize != 10 {
		t.Errorf("queue max size = %d, want 10", cfg.Queue.MaxSize)
	}
	if cfg.Broker.MessageTTL != 30*time.Minute {
		t.Errorf("message ttl = %v, want 30m", cfg.Broker.MessageTTL)
	}
	if cfg.Monitor.ErrorRateThreshold != 0.25 {
		t.Errorf("error rate threshold = %v, want 0.25", cfg.Monitor.ErrorRateThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	// Unset keys keep their defaults.
	if cfg.Repair.MaxRetries != 3 {
		t.Errorf("repair retries = %d, want default 3", cfg.Repair.MaxRetries)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestAPIKeyExpansion(t *testing.T) {
	t.Setenv("TEST_DIRIGENT_KEY", "sk-ant-expanded")
	path := writeConfig(t, `
anthropic:
  api_key: ${TEST_DIRIGENT_KEY}
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-expanded" {
		t.Errorf("api key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("queue:\n  max_size: 5\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := Watch(path, nil, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("queue:\n  max_size: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Queue.MaxSize != 7 {
			t.Errorf("reloaded max size = %d, want 7", cfg.Queue.MaxSize)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
