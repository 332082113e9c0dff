package orchestrator

import (
	"go.uber.org/zap"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/internal/broker"
	"github.com/sgarila/dirigent/internal/config"
	"github.com/sgarila/dirigent/internal/monitor"
	"github.com/sgarila/dirigent/internal/queue"
	"github.com/sgarila/dirigent/internal/state"
)

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger sets the logger shared by all subsystems.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore enables persistence of runs, agents, tasks, and events. A nil
// store keeps the orchestrator fully in-memory.
func WithStore(store *state.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithExecutor sets the executor used by the bootstrapped agents. Without
// it agents run the built-in echo executor, which is what tests want.
func WithExecutor(executor agent.Executor) Option {
	return func(o *Orchestrator) {
		o.executor = executor
	}
}

// WithQueueSize caps the pending task queue.
func WithQueueSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.queue = queue.New(n)
		}
	}
}

// WithBroker replaces the default message broker.
func WithBroker(b *broker.Broker) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.broker = b
		}
	}
}

// WithReliability replaces the default reliability monitor.
func WithReliability(r *monitor.Reliability) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reliability = r
		}
	}
}

// WithDriftDetector replaces the default drift detector.
func WithDriftDetector(d *monitor.DriftDetector) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.drift = d
		}
	}
}

// WithSupervisor replaces the default repair supervisor.
func WithSupervisor(s *monitor.Supervisor) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.supervisor = s
		}
	}
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.emitter = NewEventEmitter(n, o.logger)
		}
	}
}

// FromConfig builds the option set implied by a loaded configuration.
// Persistence is wired only when state.enabled is set and the database
// opens cleanly; an open failure is reported to the caller.
func FromConfig(cfg *config.Config, logger *zap.Logger) ([]Option, error) {
	opts := []Option{
		WithLogger(logger),
		WithQueueSize(cfg.Queue.MaxSize),
		WithBroker(broker.New(
			broker.WithMaxQueueSize(cfg.Broker.MaxQueueSize),
			broker.WithTTL(cfg.Broker.MessageTTL),
			broker.WithLogger(logger),
		)),
		WithReliability(monitor.NewReliability(
			monitor.WithErrorRateThreshold(cfg.Monitor.ErrorRateThreshold),
			monitor.WithResponseTimeThreshold(cfg.Monitor.ResponseTimeThresholdMS),
			monitor.WithActivityTimeout(cfg.Monitor.ActivityTimeout),
			monitor.WithReliabilityLogger(logger),
		)),
		WithDriftDetector(monitor.NewDriftDetector(
			monitor.WithDriftWindow(cfg.Drift.Window),
			monitor.WithDriftThreshold(cfg.Drift.Threshold),
			monitor.WithDriftLogger(logger),
		)),
		WithSupervisor(monitor.NewSupervisor(
			monitor.WithMaxRetries(cfg.Repair.MaxRetries),
			monitor.WithSupervisorLogger(logger),
		)),
	}

	if cfg.State.Enabled {
		path := cfg.State.Path
		if path == "" {
			path = state.GlobalDBPath()
		}
		db, err := state.Open(path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		opts = append(opts, WithStore(state.NewStore(db)))
	}

	return opts, nil
}
