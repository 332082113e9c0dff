package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/internal/config"
	"github.com/sgarila/dirigent/internal/orchestrator"
	"github.com/sgarila/dirigent/internal/workflow"
)

var workflowLive bool

var workflowCmd = &cobra.Command{
	Use:   "workflow <file>",
	Short: "Run a workflow defined in a YAML file",
	Long: `Run a multi-step workflow defined in a YAML file.

Steps reference agents by type and may depend on earlier steps; dependent
steps only run once everything they depend on has completed. Example file:

  name: release pipeline
  steps:
    - step: 1
      agent_type: worker_generic
      description: gather metrics
    - step: 2
      agent_type: evaluator
      description: review the metrics
      depends_on: [1]`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	workflowCmd.Flags().BoolVar(&workflowLive, "live", false, "Execute steps against the Anthropic API")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	spec, err := workflow.LoadSpecFile(args[0])
	if err != nil {
		return err
	}

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
	if workflowLive {
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

	w, err := orch.BuildWorkflow(spec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.RunWorkflow(ctx, w); err != nil {
		return err
	}

	printWorkflow(w)
	if w.Status() == workflow.StatusFailed {
		return fmt.Errorf("workflow %q failed", w.Name())
	}
	return nil
}

func printWorkflow(w *workflow.Workflow) {
	fmt.Printf("workflow %s (%s)\n", w.Name(), w.Status())
	for _, step := range w.Steps() {
		switch step.Status {
		case workflow.StepCompleted:
			color.Green("  ✓ step %d: %s", step.Step, step.Description)
		case workflow.StepFailed:
			color.Red("  ✗ step %d: %s: %s", step.Step, step.Description, step.Error)
		case workflow.StepBlocked:
			color.Yellow("  - step %d: %s (blocked)", step.Step, step.Description)
		default:
			fmt.Printf("  · step %d: %s (%s)\n", step.Step, step.Description, step.Status)
		}
	}
	p := w.Progress()
	fmt.Printf("%d/%d steps completed (%.0f%%)\n", p.Completed, p.TotalSteps, p.PercentDone)
}
