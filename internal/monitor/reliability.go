// Package monitor tracks agent reliability, detects behavioral drift, and
// drives the supervisor's repair state machine for failed agents.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultErrorRateThreshold is the error rate considered unhealthy.
	DefaultErrorRateThreshold = 0.1
	// DefaultResponseTimeThreshold is the response time in milliseconds
	// considered too slow.
	DefaultResponseTimeThreshold = 5000.0
	// DefaultActivityTimeout is how long without a recorded task before an
	// agent is considered offline.
	DefaultActivityTimeout = 10 * time.Minute

	// responseTimeWindow caps retained response time samples per agent.
	responseTimeWindow = 100
	// alertLimit caps retained alerts.
	alertLimit = 20
	// healthHistoryLimit caps retained health check results per agent.
	healthHistoryLimit = 100
)

// HealthState classifies an agent's operational health.
type HealthState string

const (
	// HealthHealthy means metrics are within thresholds.
	HealthHealthy HealthState = "healthy"
	// HealthDegraded means the error rate is elevated but below critical.
	HealthDegraded HealthState = "degraded"
	// HealthCritical means the error rate or response time breached its
	// threshold.
	HealthCritical HealthState = "critical"
	// HealthOffline means the agent has no recent activity.
	HealthOffline HealthState = "offline"
)

// AlertType classifies reliability alerts.
type AlertType string

const (
	// AlertHighErrorRate fires when an agent's error rate exceeds the
	// threshold.
	AlertHighErrorRate AlertType = "HIGH_ERROR_RATE"
	// AlertSlowResponse fires when recent response times exceed the
	// threshold.
	AlertSlowResponse AlertType = "SLOW_RESPONSE"
)

// Alert is a threshold breach observed while recording a task result.
type Alert struct {
	AgentID   string    `json:"agent_id"`
	Type      AlertType `json:"alert_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck is the result of evaluating one agent's health.
type HealthCheck struct {
	AgentID         string      `json:"agent_id"`
	State           HealthState `json:"state"`
	ErrorRate       float64     `json:"error_rate"`
	AvgResponseTime float64     `json:"avg_response_time_ms"`
	TotalTasks      int         `json:"total_tasks"`
	Timestamp       time.Time   `json:"timestamp"`
}

// agentMetrics accumulates per-agent reliability data.
type agentMetrics struct {
	totalTasks    int
	failedTasks   int
	responseTimes []float64
	lastActivity  time.Time
	healthHistory []HealthCheck
}

func (m *agentMetrics) errorRate() float64 {
	if m.totalTasks == 0 {
		return 0
	}
	return float64(m.failedTasks) / float64(m.totalTasks)
}

func (m *agentMetrics) avgResponseTime() float64 {
	return mean(m.responseTimes)
}

// Reliability tracks task outcomes and response times per agent and raises
// alerts when thresholds are breached.
type Reliability struct {
	errorRateThreshold    float64
	responseTimeThreshold float64
	activityTimeout       time.Duration
	logger                *zap.Logger

	mu      sync.Mutex
	metrics map[string]*agentMetrics
	alerts  []Alert
}

// ReliabilityOption configures a Reliability monitor.
type ReliabilityOption func(*Reliability)

// WithErrorRateThreshold overrides the error rate threshold.
func WithErrorRateThreshold(v float64) ReliabilityOption {
	return func(r *Reliability) {
		if v > 0 {
			r.errorRateThreshold = v
		}
	}
}

// WithResponseTimeThreshold overrides the response time threshold (ms).
func WithResponseTimeThreshold(v float64) ReliabilityOption {
	return func(r *Reliability) {
		if v > 0 {
			r.responseTimeThreshold = v
		}
	}
}

// WithActivityTimeout overrides the offline detection timeout.
func WithActivityTimeout(d time.Duration) ReliabilityOption {
	return func(r *Reliability) {
		if d > 0 {
			r.activityTimeout = d
		}
	}
}

// WithReliabilityLogger sets the monitor logger.
func WithReliabilityLogger(logger *zap.Logger) ReliabilityOption {
	return func(r *Reliability) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReliability creates a reliability monitor with default thresholds.
func NewReliability(opts ...ReliabilityOption) *Reliability {
	r := &Reliability{
		errorRateThreshold:    DefaultErrorRateThreshold,
		responseTimeThreshold: DefaultResponseTimeThreshold,
		activityTimeout:       DefaultActivityTimeout,
		logger:                zap.NewNop(),
		metrics:               make(map[string]*agentMetrics),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record logs one task outcome for an agent. Response time samples are kept
// in a sliding window; alerts fire immediately when a threshold is crossed.
func (r *Reliability) Record(agentID string, success bool, responseTimeMS float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.metricsLocked(agentID)
	m.totalTasks++
	if !success {
		m.failedTasks++
	}
	m.responseTimes = append(m.responseTimes, responseTimeMS)
	if len(m.responseTimes) > responseTimeWindow {
		m.responseTimes = m.responseTimes[len(m.responseTimes)-responseTimeWindow:]
	}
	m.lastActivity = time.Now()

	if rate := m.errorRate(); rate > r.errorRateThreshold {
		r.alertLocked(agentID, AlertHighErrorRate,
			fmt.Sprintf("error rate %.2f exceeds threshold %.2f", rate, r.errorRateThreshold))
	}
	recent := m.responseTimes
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	if avg := mean(recent); avg > r.responseTimeThreshold {
		r.alertLocked(agentID, AlertSlowResponse,
			fmt.Sprintf("recent response time %.0fms exceeds threshold %.0fms", avg, r.responseTimeThreshold))
	}
}

func (r *Reliability) metricsLocked(agentID string) *agentMetrics {
	m, ok := r.metrics[agentID]
	if !ok {
		m = &agentMetrics{}
		r.metrics[agentID] = m
	}
	return m
}

func (r *Reliability) alertLocked(agentID string, typ AlertType, msg string) {
	r.alerts = append(r.alerts, Alert{
		AgentID:   agentID,
		Type:      typ,
		Message:   msg,
		Timestamp: time.Now(),
	})
	if len(r.alerts) > alertLimit {
		r.alerts = r.alerts[len(r.alerts)-alertLimit:]
	}
	r.logger.Warn("reliability alert",
		zap.String("agent", agentID),
		zap.String("type", string(typ)),
		zap.String("message", msg))
}

// Check evaluates one agent's health and appends the result to its bounded
// health history. Agents with no recorded tasks or stale activity are
// offline.
func (r *Reliability) Check(agentID string) HealthCheck {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.metricsLocked(agentID)
	check := HealthCheck{
		AgentID:         agentID,
		ErrorRate:       m.errorRate(),
		AvgResponseTime: m.avgResponseTime(),
		TotalTasks:      m.totalTasks,
		Timestamp:       time.Now(),
	}

	switch {
	case m.totalTasks == 0 || time.Since(m.lastActivity) > r.activityTimeout:
		check.State = HealthOffline
	case check.ErrorRate > r.errorRateThreshold || check.AvgResponseTime > r.responseTimeThreshold:
		check.State = HealthCritical
	case check.ErrorRate > r.errorRateThreshold/2:
		check.State = HealthDegraded
	default:
		check.State = HealthHealthy
	}

	m.healthHistory = append(m.healthHistory, check)
	if len(m.healthHistory) > healthHistoryLimit {
		m.healthHistory = m.healthHistory[len(m.healthHistory)-healthHistoryLimit:]
	}
	return check
}

// CheckAll evaluates every tracked agent.
func (r *Reliability) CheckAll() map[string]HealthCheck {
	r.mu.Lock()
	ids := make([]string, 0, len(r.metrics))
	for id := range r.metrics {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	out := make(map[string]HealthCheck, len(ids))
	for _, id := range ids {
		out[id] = r.Check(id)
	}
	return out
}

// Alerts returns a copy of the bounded alert log, oldest first.
func (r *Reliability) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// History returns an agent's health check history, oldest first.
func (r *Reliability) History(agentID string) []HealthCheck {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.metrics[agentID]
	if !ok {
		return nil
	}
	out := make([]HealthCheck, len(m.healthHistory))
	copy(out, m.healthHistory)
	return out
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
