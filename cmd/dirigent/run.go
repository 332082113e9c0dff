package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/internal/config"
	"github.com/sgarila/dirigent/internal/orchestrator"
	"github.com/sgarila/dirigent/pkg/models"
)

var (
	runPriority string
	runMaxTasks int
	runLive     bool
)

var runCmd = &cobra.Command{
	Use:   "run <task description> [more tasks...]",
	Short: "Submit tasks and process them",
	Long: `Submit one or more tasks to the orchestrator and process them.

Each argument is queued as its own task, routed to the best-matching agent,
and executed. With --live the agents call the Anthropic API using the
configured model; without it they run the built-in echo executor, useful
for exercising routing and monitoring locally.

Examples:
  dirigent run "analyze the network logs"
  dirigent run --priority high "triage outage" "draft incident report"
  dirigent run --live "summarize this quarter's telecom incidents"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runPriority, "priority", "p", "medium", "Task priority (critical, high, medium, low)")
	runCmd.Flags().IntVar(&runMaxTasks, "max-tasks", 0, "Maximum tasks to process (0 = all submitted)")
	runCmd.Flags().BoolVar(&runLive, "live", false, "Execute tasks against the Anthropic API")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	opts, err := orchestrator.FromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("configure orchestrator: %w", err)
	}

	if runLive {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return err
		}
		executor := agent.NewClaudeExecutor(key,
			agent.WithModel(anthropic.Model(cfg.Anthropic.Model)),
			agent.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)),
		)
		opts = append(opts, orchestrator.WithExecutor(executor))
	}

	orch := orchestrator.New(opts...)
	defer orch.Close()

	priority := models.TaskPriority(runPriority)
	if !priority.Valid() {
		return fmt.Errorf("unknown priority %q", runPriority)
	}

	submitted := 0
	for _, description := range args {
		id := orch.AddTask(description, priority, nil)
		if id == "" {
			color.Yellow("queue full, task rejected: %s", description)
			continue
		}
		submitted++
	}
	if submitted == 0 {
		return fmt.Errorf("no tasks accepted")
	}

	maxTasks := runMaxTasks
	if maxTasks <= 0 {
		maxTasks = submitted
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := orch.ProcessTasks(ctx, maxTasks)
	printResults(results)
	printHealth(orch)
	return nil
}

func printResults(results []*agent.Result) {
	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success() {
			succeeded++
			color.Green("✓ %s  (%s, %s)", r.TaskID, r.AgentID, r.Duration.Round(time.Millisecond))
		} else {
			failed++
			color.Red("✗ %s  (%s): %s", r.TaskID, r.AgentID, r.Error)
		}
	}
	fmt.Printf("\n%d processed, %d succeeded, %d failed\n", len(results), succeeded, failed)
}

func printHealth(orch *orchestrator.Orchestrator) {
	status := orch.Status()
	if status.Repairs.TotalFailures > 0 {
		fmt.Printf("repairs: %d resolved, %d escalated, %d pending\n",
			status.Repairs.Resolved, status.Repairs.Escalated, status.Repairs.Pending)
	}
	if status.QueueSize > 0 {
		color.Yellow("%d tasks still pending", status.QueueSize)
	}
}
