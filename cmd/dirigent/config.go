package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgarila/dirigent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify dirigent configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/dirigent/config.yaml
Project-specific overrides can be placed in .dirigent.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("queue.max_size: %d\n", cfg.Queue.MaxSize)
	fmt.Printf("broker.max_queue_size: %d\n", cfg.Broker.MaxQueueSize)
	fmt.Printf("broker.message_ttl: %s\n", cfg.Broker.MessageTTL)
	fmt.Printf("monitor.error_rate_threshold: %g\n", cfg.Monitor.ErrorRateThreshold)
	fmt.Printf("monitor.response_time_threshold_ms: %g\n", cfg.Monitor.ResponseTimeThresholdMS)
	fmt.Printf("monitor.activity_timeout: %s\n", cfg.Monitor.ActivityTimeout)
	fmt.Printf("drift.window: %d\n", cfg.Drift.Window)
	fmt.Printf("drift.threshold: %g\n", cfg.Drift.Threshold)
	fmt.Printf("repair.max_retries: %d\n", cfg.Repair.MaxRetries)
	fmt.Printf("logging.level: %s\n", cfg.Logging.Level)
	fmt.Printf("logging.format: %s\n", cfg.Logging.Format)
	fmt.Printf("state.enabled: %t\n", cfg.State.Enabled)
	fmt.Printf("state.path: %s\n", cfg.State.Path)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue reads one configuration value by dotted key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.max_tokens":
		return strconv.Itoa(cfg.Anthropic.MaxTokens), nil
	case "queue.max_size":
		return strconv.Itoa(cfg.Queue.MaxSize), nil
	case "broker.max_queue_size":
		return strconv.Itoa(cfg.Broker.MaxQueueSize), nil
	case "broker.message_ttl":
		return cfg.Broker.MessageTTL.String(), nil
	case "monitor.error_rate_threshold":
		return strconv.FormatFloat(cfg.Monitor.ErrorRateThreshold, 'g', -1, 64), nil
	case "monitor.response_time_threshold_ms":
		return strconv.FormatFloat(cfg.Monitor.ResponseTimeThresholdMS, 'g', -1, 64), nil
	case "monitor.activity_timeout":
		return cfg.Monitor.ActivityTimeout.String(), nil
	case "drift.window":
		return strconv.Itoa(cfg.Drift.Window), nil
	case "drift.threshold":
		return strconv.FormatFloat(cfg.Drift.Threshold, 'g', -1, 64), nil
	case "repair.max_retries":
		return strconv.Itoa(cfg.Repair.MaxRetries), nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	case "state.enabled":
		return strconv.FormatBool(cfg.State.Enabled), nil
	case "state.path":
		return cfg.State.Path, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue writes one configuration value by dotted key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.max_tokens":
		return setInt(&cfg.Anthropic.MaxTokens, value)
	case "queue.max_size":
		return setInt(&cfg.Queue.MaxSize, value)
	case "broker.max_queue_size":
		return setInt(&cfg.Broker.MaxQueueSize, value)
	case "broker.message_ttl":
		return setDuration(&cfg.Broker.MessageTTL, value)
	case "monitor.error_rate_threshold":
		return setFloat(&cfg.Monitor.ErrorRateThreshold, value)
	case "monitor.response_time_threshold_ms":
		return setFloat(&cfg.Monitor.ResponseTimeThresholdMS, value)
	case "monitor.activity_timeout":
		return setDuration(&cfg.Monitor.ActivityTimeout, value)
	case "drift.window":
		return setInt(&cfg.Drift.Window, value)
	case "drift.threshold":
		return setFloat(&cfg.Drift.Threshold, value)
	case "repair.max_retries":
		return setInt(&cfg.Repair.MaxRetries, value)
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	case "state.enabled":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.State.Enabled = parsed
	case "state.path":
		cfg.State.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q", value)
	}
	*dst = parsed
	return nil
}

func setFloat(dst *float64, value string) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", value)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q", value)
	}
	*dst = parsed
	return nil
}
