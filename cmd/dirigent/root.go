package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sgarila/dirigent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "dirigent",
	Short: "Multi-agent task orchestrator",
	Long: `Dirigent coordinates a team of agents over a shared task queue.

Tasks are routed to agents by capability match, executed, and tracked by a
reliability monitor, a drift detector, and a repair supervisor that walks
failing agents through a ladder of recovery strategies.

Core capabilities:
- Priority task queue with capability-based routing
- Inter-agent messaging over an in-memory broker
- Dependency-aware multi-step workflows
- Agent health, drift detection, and automated repair`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// A .env in the working directory is a convenience for local runs;
	// missing files are fine.
	godotenv.Load()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the layered configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildLogger constructs the process logger from config.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Logging.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
