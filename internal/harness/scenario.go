package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a kernel conformance scenario: a service topology, a
// list of steps to drive the kernel, and assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Services declares the supervised services registered before the
	// steps run.
	Services []ServiceDecl `yaml:"services,omitempty"`

	// Steps is the main drive sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final kernel state and counters.
	Assertions []Assertion `yaml:"assertions"`

	// CrashTokens optionally fixes the leading crash tokens for
	// deterministic log and golden comparison. Once the list runs out
	// the runner continues with numbered tokens (crash-1, crash-2, ...),
	// which is also the default for an empty list.
	CrashTokens []string `yaml:"crash_tokens,omitempty"`
}

// ServiceDecl declares one service for registration.
type ServiceDecl struct {
	PID          int64   `yaml:"pid"`
	Deps         []int64 `yaml:"deps,omitempty"`
	RestartLimit int     `yaml:"restart_limit,omitempty"`
}

// Step is one kernel operation.
//
// Supported ops:
//   - enqueue:   pid
//   - preempt:   (no fields)
//   - yield_to:  target
//   - block_on:  pid (src), target (dst)
//   - unblock:   pid
//   - crash:     pid
//   - ipc:       pid (sender), target (receiver), msg_len
type Step struct {
	Op     string `yaml:"op"`
	PID    int64  `yaml:"pid,omitempty"`
	Target int64  `yaml:"target,omitempty"`
	MsgLen int    `yaml:"msg_len,omitempty"`
}

// Step op constants.
const (
	OpEnqueue = "enqueue"
	OpPreempt = "preempt"
	OpYieldTo = "yield_to"
	OpBlockOn = "block_on"
	OpUnblock = "unblock"
	OpCrash   = "crash"
	OpIPC     = "ipc"
)

// Assertion validates one aspect of the final state.
//
// Supported types:
//   - running:        pid, want
//   - restarts:       pid, count
//   - ready_order:    pids
//   - current:        pid
//   - blocked:        pid, want
//   - fastpath_stats: success, failure, hits, fallbacks
type Assertion struct {
	Type string `yaml:"type"`

	PID  int64   `yaml:"pid,omitempty"`
	Want bool    `yaml:"want,omitempty"`
	PIDs []int64 `yaml:"pids,omitempty"`

	Count int `yaml:"count,omitempty"`

	Success   int `yaml:"success,omitempty"`
	Failure   int `yaml:"failure,omitempty"`
	Hits      int `yaml:"hits,omitempty"`
	Fallbacks int `yaml:"fallbacks,omitempty"`
}

// Assertion type constants.
const (
	AssertRunning       = "running"
	AssertRestarts      = "restarts"
	AssertReadyOrder    = "ready_order"
	AssertCurrent       = "current"
	AssertBlocked       = "blocked"
	AssertFastpathStats = "fastpath_stats"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpEnqueue, OpUnblock, OpCrash:
		if step.PID == 0 {
			return fmt.Errorf("steps[%d]: pid is required for %s", index, step.Op)
		}
	case OpPreempt:
	case OpYieldTo:
		if step.Target == 0 {
			return fmt.Errorf("steps[%d]: target is required for yield_to", index)
		}
	case OpBlockOn:
		if step.PID == 0 || step.Target == 0 {
			return fmt.Errorf("steps[%d]: pid and target are required for block_on", index)
		}
	case OpIPC:
		if step.PID == 0 || step.Target == 0 {
			return fmt.Errorf("steps[%d]: pid and target are required for ipc", index)
		}
		if step.MsgLen < 0 {
			return fmt.Errorf("steps[%d]: msg_len must be non-negative", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertRunning, AssertBlocked:
		if a.PID == 0 {
			return fmt.Errorf("assertions[%d]: pid is required for %s", index, a.Type)
		}
	case AssertRestarts:
		if a.PID == 0 {
			return fmt.Errorf("assertions[%d]: pid is required for restarts", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertReadyOrder:
	case AssertCurrent:
	case AssertFastpathStats:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
