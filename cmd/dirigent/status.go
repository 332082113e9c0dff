package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sgarila/dirigent/internal/state"
	"github.com/sgarila/dirigent/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted orchestrator state",
	Long: `Display the state persisted by previous orchestrator runs.

Shows:
  - Known agents and their counters
  - Pending and recently finished tasks

Reads the project-local database (.dirigent/state.db) when present,
falling back to the global one.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No persisted state. Enable state.enabled and run 'dirigent run <task>'.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	store := state.NewStore(db)

	if err := displayAgents(store); err != nil {
		return err
	}
	fmt.Println()
	return displayTasks(store)
}

func displayAgents(store *state.Store) error {
	agents, err := store.LoadAgents()
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	if len(agents) == 0 {
		fmt.Println("Agents: none")
		return nil
	}

	fmt.Printf("Agents: %d\n", len(agents))
	for _, a := range agents {
		line := fmt.Sprintf("  %s  %-16s %s  tasks=%d errors=%d",
			a.ID, a.Type, a.Name, a.TaskCount, a.ErrorCount)
		if a.ErrorCount > 0 {
			color.Yellow("%s", line)
		} else {
			fmt.Println(line)
		}
	}
	return nil
}

func displayTasks(store *state.Store) error {
	pending, err := store.LoadTasks(models.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("load pending tasks: %w", err)
	}
	failed, err := store.LoadTasks(models.TaskStatusFailed)
	if err != nil {
		return fmt.Errorf("load failed tasks: %w", err)
	}

	fmt.Printf("Tasks: %d pending, %d failed\n", len(pending), len(failed))
	for _, task := range pending {
		fmt.Printf("  %s  [%s]  %q  (queued %s ago)\n",
			task.ID, task.Priority, task.Description,
			formatDuration(time.Since(task.CreatedAt)))
	}
	for _, task := range failed {
		color.Red("  %s  failed: %v", task.ID, task.Result)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
