// Package config handles configuration loading for dirigent.
// It supports XDG config paths, project-level overrides, environment
// variables, and live reload of the active config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for dirigent.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Drift     DriftConfig     `mapstructure:"drift"`
	Repair    RepairConfig    `mapstructure:"repair"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	State     StateConfig     `mapstructure:"state"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// QueueConfig holds task queue settings.
type QueueConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// BrokerConfig holds message broker settings.
type BrokerConfig struct {
	MaxQueueSize int           `mapstructure:"max_queue_size"`
	MessageTTL   time.Duration `mapstructure:"message_ttl"`
}

// MonitorConfig holds reliability monitor thresholds.
type MonitorConfig struct {
	ErrorRateThreshold      float64       `mapstructure:"error_rate_threshold"`
	ResponseTimeThresholdMS float64       `mapstructure:"response_time_threshold_ms"`
	ActivityTimeout         time.Duration `mapstructure:"activity_timeout"`
}

// DriftConfig holds drift detector settings.
type DriftConfig struct {
	Window    int     `mapstructure:"window"`
	Threshold float64 `mapstructure:"threshold"`
}

// RepairConfig holds supervisor repair settings.
type RepairConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StateConfig holds persistence settings.
type StateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, DIRIGENT_*)
// 2. Project config (.dirigent.yaml in current directory or a parent)
// 3. User config (~/.config/dirigent/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DIRIGENT")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("queue.max_size", cfg.Queue.MaxSize)
	v.Set("broker.max_queue_size", cfg.Broker.MaxQueueSize)
	v.Set("broker.message_ttl", cfg.Broker.MessageTTL.String())
	v.Set("monitor.error_rate_threshold", cfg.Monitor.ErrorRateThreshold)
	v.Set("monitor.response_time_threshold_ms", cfg.Monitor.ResponseTimeThresholdMS)
	v.Set("monitor.activity_timeout", cfg.Monitor.ActivityTimeout.String())
	v.Set("drift.window", cfg.Drift.Window)
	v.Set("drift.threshold", cfg.Drift.Threshold)
	v.Set("repair.max_retries", cfg.Repair.MaxRetries)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.format", cfg.Logging.Format)
	v.Set("state.enabled", cfg.State.Enabled)
	v.Set("state.path", cfg.State.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("queue.max_size", 100)

	v.SetDefault("broker.max_queue_size", 1000)
	v.SetDefault("broker.message_ttl", "1h")

	v.SetDefault("monitor.error_rate_threshold", 0.1)
	v.SetDefault("monitor.response_time_threshold_ms", 5000)
	v.SetDefault("monitor.activity_timeout", "10m")

	v.SetDefault("drift.window", 100)
	v.SetDefault("drift.threshold", 0.2)

	v.SetDefault("repair.max_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("state.enabled", false)
	v.SetDefault("state.path", "")
}

// getUserConfigDir returns the XDG config directory for dirigent.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dirigent")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "dirigent")
	}
	return filepath.Join(home, ".config", "dirigent")
}

// findProjectConfig searches for .dirigent.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".dirigent.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		Queue: QueueConfig{
			MaxSize: 100,
		},
		Broker: BrokerConfig{
			MaxQueueSize: 1000,
			MessageTTL:   time.Hour,
		},
		Monitor: MonitorConfig{
			ErrorRateThreshold:      0.1,
			ResponseTimeThresholdMS: 5000,
			ActivityTimeout:         10 * time.Minute,
		},
		Drift: DriftConfig{
			Window:    100,
			Threshold: 0.2,
		},
		Repair: RepairConfig{
			MaxRetries: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
