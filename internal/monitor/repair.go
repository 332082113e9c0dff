package monitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sgarila/dirigent/pkg/models"
)

// DefaultMaxRepairRetries is how many non-escalation repair attempts a
// failure gets before it is forced to escalation.
const DefaultMaxRepairRetries = 3

// Strategy is a repair approach. Strategies are tried in a fixed order,
// ending in escalation.
type Strategy string

const (
	// StrategyPromptAdjustment rewrites the failing agent's prompt.
	StrategyPromptAdjustment Strategy = "prompt_adjustment"
	// StrategyAgentSwap reroutes the work to a different agent.
	StrategyAgentSwap Strategy = "agent_swap"
	// StrategyTaskDelegation splits the task and delegates the pieces.
	StrategyTaskDelegation Strategy = "task_delegation"
	// StrategyEscalation hands the failure to a human operator.
	StrategyEscalation Strategy = "escalation"
)

// strategyOrder is the repair ladder. Escalation is always last.
var strategyOrder = []Strategy{
	StrategyPromptAdjustment,
	StrategyAgentSwap,
	StrategyTaskDelegation,
	StrategyEscalation,
}

// Severity classifies how serious a failure is, inferred from its reason.
type Severity string

const (
	// SeverityMedium is the default for unclassified failures.
	SeverityMedium Severity = "medium"
	// SeverityHigh covers timeouts and slowness.
	SeverityHigh Severity = "high"
	// SeverityCritical covers crashes and explicitly critical failures.
	SeverityCritical Severity = "critical"
)

// classifySeverity infers severity from keywords in the failure reason.
func classifySeverity(reason string) Severity {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "critical") || strings.Contains(lower, "crash"):
		return SeverityCritical
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "slow"):
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Attempt is one execution of a repair strategy against a failure.
type Attempt struct {
	ID        string    `json:"repair_id"`
	Strategy  Strategy  `json:"strategy"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// Failure is a recorded agent failure and its repair history.
type Failure struct {
	ID        string    `json:"failure_id"`
	AgentID   string    `json:"agent_id"`
	TaskID    string    `json:"task_id,omitempty"`
	Reason    string    `json:"reason"`
	Severity  Severity  `json:"severity"`
	Attempts  []Attempt `json:"attempts"`
	Resolved  bool      `json:"resolved"`
	Escalated bool      `json:"escalated"`
	CreatedAt time.Time `json:"created_at"`
}

// StrategyFunc executes one repair strategy against a failure and reports
// whether the repair took.
type StrategyFunc func(*Failure) bool

// Supervisor walks failed agents through the repair ladder. Each failure is
// an independent state machine: attempts advance through the strategy order
// on non-success, and the retry cap forces escalation.
type Supervisor struct {
	maxRetries int
	logger     *zap.Logger

	mu       sync.Mutex
	failures map[string]*Failure
	handlers map[Strategy]StrategyFunc
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithMaxRetries overrides the retry cap before escalation.
func WithMaxRetries(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithSupervisorLogger sets the supervisor logger.
func WithSupervisorLogger(logger *zap.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSupervisor creates a repair supervisor. Strategies without a registered
// handler report non-success, except escalation which always succeeds by
// definition (the failure leaves automated repair).
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		maxRetries: DefaultMaxRepairRetries,
		logger:     zap.NewNop(),
		failures:   make(map[string]*Failure),
		handlers:   make(map[Strategy]StrategyFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHandler installs the executor for a repair strategy.
func (s *Supervisor) RegisterHandler(strategy Strategy, fn StrategyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strategy] = fn
}

// RecordFailure registers an agent failure and returns its record.
func (s *Supervisor) RecordFailure(agentID, taskID, reason string) *Failure {
	f := &Failure{
		ID:        models.NewID("fail"),
		AgentID:   agentID,
		TaskID:    taskID,
		Reason:    reason,
		Severity:  classifySeverity(reason),
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.failures[f.ID] = f
	s.mu.Unlock()

	s.logger.Warn("agent failure recorded",
		zap.String("failure", f.ID),
		zap.String("agent", agentID),
		zap.String("severity", string(f.Severity)),
		zap.String("reason", reason))
	return f
}

// Attempt runs the next strategy on the failure ladder and returns the
// recorded attempt. Already-resolved or already-escalated failures and
// unknown IDs return an error.
func (s *Supervisor) Attempt(failureID string) (Attempt, error) {
	s.mu.Lock()
	f, ok := s.failures[failureID]
	if !ok {
		s.mu.Unlock()
		return Attempt{}, fmt.Errorf("unknown failure %q", failureID)
	}
	if f.Resolved {
		s.mu.Unlock()
		return Attempt{}, fmt.Errorf("failure %q already resolved", failureID)
	}
	if f.Escalated {
		s.mu.Unlock()
		return Attempt{}, fmt.Errorf("failure %q already escalated", failureID)
	}

	strategy := s.nextStrategyLocked(f)
	handler := s.handlers[strategy]
	s.mu.Unlock()

	success := strategy == StrategyEscalation
	if handler != nil {
		success = handler(f)
	}
	if strategy == StrategyEscalation {
		// Escalation ends automated repair regardless of handler outcome.
		success = true
	}

	attempt := Attempt{
		ID:        models.NewID("repair"),
		Strategy:  strategy,
		Success:   success,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	f.Attempts = append(f.Attempts, attempt)
	if strategy == StrategyEscalation {
		f.Escalated = true
	} else if success {
		f.Resolved = true
	}
	s.mu.Unlock()

	s.logger.Info("repair attempt",
		zap.String("failure", failureID),
		zap.String("strategy", string(strategy)),
		zap.Bool("success", success))
	return attempt, nil
}

// nextStrategyLocked picks the strategy for the next attempt: the ladder
// position equal to the attempt count, clamped to escalation once the retry
// cap is reached.
func (s *Supervisor) nextStrategyLocked(f *Failure) Strategy {
	idx := len(f.Attempts)
	if idx >= s.maxRetries || idx >= len(strategyOrder)-1 {
		return StrategyEscalation
	}
	return strategyOrder[idx]
}

// Repair drives a failure through the ladder until an attempt succeeds or
// the failure escalates, and returns the final attempt.
func (s *Supervisor) Repair(failureID string) (Attempt, error) {
	for {
		attempt, err := s.Attempt(failureID)
		if err != nil {
			return Attempt{}, err
		}
		if attempt.Success || attempt.Strategy == StrategyEscalation {
			return attempt, nil
		}
	}
}

// Get returns a failure record by ID.
func (s *Supervisor) Get(failureID string) (*Failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[failureID]
	return f, ok
}

// Unresolved returns failures that are neither resolved nor escalated.
func (s *Supervisor) Unresolved() []*Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Failure
	for _, f := range s.failures {
		if !f.Resolved && !f.Escalated {
			out = append(out, f)
		}
	}
	return out
}

// RepairStats summarizes the supervisor's failure ledger.
type RepairStats struct {
	TotalFailures int `json:"total_failures"`
	Resolved      int `json:"resolved"`
	Escalated     int `json:"escalated"`
	Pending       int `json:"pending"`
}

// Stats returns counts over all recorded failures.
func (s *Supervisor) Stats() RepairStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := RepairStats{TotalFailures: len(s.failures)}
	for _, f := range s.failures {
		switch {
		case f.Resolved:
			stats.Resolved++
		case f.Escalated:
			stats.Escalated++
		default:
			stats.Pending++
		}
	}
	return stats
}
