package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sgarila/dirigent/pkg/models"
)

// RunStatus is the lifecycle state of a persisted orchestrator run.
type RunStatus string

const (
	// RunActive means the run is still in progress.
	RunActive RunStatus = "active"
	// RunCompleted means the run finished normally.
	RunCompleted RunStatus = "completed"
	// RunAborted means the run was interrupted.
	RunAborted RunStatus = "aborted"
)

// Run is a persisted orchestrator session.
type Run struct {
	ID         string     `json:"run_id"`
	Name       string     `json:"name"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
}

// Event is one persisted orchestrator event.
type Event struct {
	Seq       int64          `json:"seq"`
	RunID     string         `json:"run_id,omitempty"`
	Type      string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists orchestrator state snapshots. A nil Store is valid and
// turns every operation into a no-op, so persistence stays optional for
// in-memory runs.
type Store struct {
	db *DB
}

// NewStore creates a store over an opened, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records the beginning of an orchestrator run.
func (s *Store) StartRun(runID, name string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, name, started_at, status) VALUES (?, ?, ?, ?)
	`, runID, name, formatTime(time.Now()), string(RunActive))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records the end of a run with its terminal status.
func (s *Store) FinishRun(runID string, status RunStatus) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, string(status), formatTime(time.Now()), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	row := s.db.QueryRow(`
		SELECT id, name, started_at, finished_at, status FROM runs WHERE id = ?
	`, runID)

	var run Run
	var startedAt string
	var finishedAt sql.NullString
	var status string
	if err := row.Scan(&run.ID, &run.Name, &startedAt, &finishedAt, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse run start time: %w", err)
	}
	run.StartedAt = t
	run.FinishedAt = parseNullableTime(finishedAt)
	run.Status = RunStatus(status)
	return &run, nil
}

// SaveAgent upserts an agent snapshot.
func (s *Store) SaveAgent(info models.AgentInfo) error {
	if s == nil || s.db == nil {
		return nil
	}
	caps, err := json.Marshal(info.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO agents (id, agent_type, name, capabilities, status, task_count, error_count, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			task_count = excluded.task_count,
			error_count = excluded.error_count,
			last_activity = excluded.last_activity
	`, info.ID, string(info.Type), info.Name, string(caps),
		string(info.Status), info.TaskCount, info.ErrorCount,
		formatTime(info.CreatedAt), formatTime(info.LastActivity))
	if err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

// LoadAgents loads all persisted agent snapshots.
func (s *Store) LoadAgents() ([]models.AgentInfo, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, agent_type, name, capabilities, status, task_count, error_count, created_at, last_activity
		FROM agents ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	defer rows.Close()

	var agents []models.AgentInfo
	for rows.Next() {
		var info models.AgentInfo
		var agentType, status, caps, createdAt string
		var lastActivity sql.NullString
		if err := rows.Scan(&info.ID, &agentType, &info.Name, &caps,
			&status, &info.TaskCount, &info.ErrorCount, &createdAt, &lastActivity); err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		info.Type = models.AgentType(agentType)
		info.Status = models.AgentStatus(status)
		if caps != "" {
			if err := json.Unmarshal([]byte(caps), &info.Capabilities); err != nil {
				return nil, fmt.Errorf("unmarshal capabilities: %w", err)
			}
		}
		if t, err := parseTime(createdAt); err == nil {
			info.CreatedAt = t
		}
		if t := parseNullableTime(lastActivity); t != nil {
			info.LastActivity = *t
		}
		agents = append(agents, info)
	}
	return agents, rows.Err()
}

// SaveTask upserts a task record.
func (s *Store) SaveTask(task *models.Task) error {
	if s == nil || s.db == nil {
		return nil
	}
	var result string
	if task.Result != nil {
		data, err := json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("marshal task result: %w", err)
		}
		result = string(data)
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, description, priority, status, assigned_agent, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			assigned_agent = excluded.assigned_agent,
			result = excluded.result
	`, task.ID, task.Description, string(task.Priority), string(task.Status),
		task.AssignedTo, result, formatTime(task.CreatedAt))
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// LoadTasks loads tasks by status. An empty status loads everything.
func (s *Store) LoadTasks(status models.TaskStatus) ([]*models.Task, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := `SELECT id, description, priority, status, assigned_agent, result, created_at FROM tasks`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var task models.Task
		var priority, taskStatus, createdAt string
		var assigned, result sql.NullString
		if err := rows.Scan(&task.ID, &task.Description, &priority, &taskStatus,
			&assigned, &result, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		task.Priority = models.TaskPriority(priority)
		task.Status = models.TaskStatus(taskStatus)
		task.AssignedTo = assigned.String
		if result.Valid && result.String != "" {
			if err := json.Unmarshal([]byte(result.String), &task.Result); err != nil {
				task.Result = result.String
			}
		}
		if t, err := parseTime(createdAt); err == nil {
			task.CreatedAt = t
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// RecordEvent appends an event to the persisted event log.
func (s *Store) RecordEvent(runID, eventType string, payload map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}
	var data string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		data = string(raw)
	}
	_, err := s.db.Exec(`
		INSERT INTO events (run_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)
	`, runID, eventType, data, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Events loads up to limit events for a run, oldest first. A non-positive
// limit loads all of them.
func (s *Store) Events(runID string, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := `SELECT seq, run_id, event_type, payload, created_at FROM events WHERE run_id = ? ORDER BY seq`
	args := []any{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&ev.Seq, &ev.RunID, &ev.Type, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &ev.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		if t, err := parseTime(createdAt); err == nil {
			ev.CreatedAt = t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
