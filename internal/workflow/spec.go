package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// StepSpec is one step in a declarative workflow file. Steps reference
// agents by type so the file stays valid across runs; the orchestrator
// resolves types to live agent IDs when the workflow is built.
type StepSpec struct {
	Step        int    `yaml:"step"`
	AgentType   string `yaml:"agent_type"`
	Description string `yaml:"description"`
	DependsOn   []int  `yaml:"depends_on"`
}

// Spec is a declarative workflow definition loaded from YAML.
type Spec struct {
	Name  string     `yaml:"name"`
	Steps []StepSpec `yaml:"steps"`
}

// ParseSpec parses and validates a YAML workflow definition.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workflow spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadSpecFile reads and parses a workflow definition from disk.
func LoadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow spec: %w", err)
	}
	return ParseSpec(data)
}

// Validate checks the spec for structural problems: missing fields,
// duplicate step numbers, and dependencies that point at undefined or later
// steps (which also rules out cycles).
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("workflow spec: name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("workflow spec %q: at least one step is required", s.Name)
	}

	seen := make(map[int]bool, len(s.Steps))
	for _, step := range s.Steps {
		if step.Step <= 0 {
			return fmt.Errorf("workflow spec %q: step numbers must be positive, got %d", s.Name, step.Step)
		}
		if seen[step.Step] {
			return fmt.Errorf("workflow spec %q: duplicate step %d", s.Name, step.Step)
		}
		seen[step.Step] = true
		if step.AgentType == "" {
			return fmt.Errorf("workflow spec %q: step %d has no agent_type", s.Name, step.Step)
		}
		if step.Description == "" {
			return fmt.Errorf("workflow spec %q: step %d has no description", s.Name, step.Step)
		}
	}
	for _, step := range s.Steps {
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("workflow spec %q: step %d depends on undefined step %d", s.Name, step.Step, dep)
			}
			if dep >= step.Step {
				return fmt.Errorf("workflow spec %q: step %d depends on step %d, dependencies must point backwards", s.Name, step.Step, dep)
			}
		}
	}
	return nil
}

// Ordered returns the steps sorted by step number.
func (s *Spec) Ordered() []StepSpec {
	steps := make([]StepSpec, len(s.Steps))
	copy(steps, s.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })
	return steps
}
