package workflow

import (
	"sync"

	"go.uber.org/zap"
)

// Coordinator creates and tracks workflows by ID.
type Coordinator struct {
	logger *zap.Logger

	mu        sync.Mutex
	workflows map[string]*Workflow
}

// NewCoordinator creates an empty coordinator. A nil logger is replaced
// with a no-op logger.
func NewCoordinator(logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		logger:    logger,
		workflows: make(map[string]*Workflow),
	}
}

// Create registers a new workflow and returns it.
func (c *Coordinator) Create(name string) *Workflow {
	w := New(name)
	c.mu.Lock()
	c.workflows[w.ID()] = w
	c.mu.Unlock()
	c.logger.Info("workflow created",
		zap.String("workflow", w.ID()),
		zap.String("name", name))
	return w
}

// Get returns a workflow by ID.
func (c *Coordinator) Get(id string) (*Workflow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workflows[id]
	return w, ok
}

// All returns every tracked workflow, unordered.
func (c *Coordinator) All() []*Workflow {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Workflow, 0, len(c.workflows))
	for _, w := range c.workflows {
		out = append(out, w)
	}
	return out
}

// Count returns the number of tracked workflows.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workflows)
}
