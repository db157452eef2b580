package harness

import (
	"fmt"

	"microcosm/internal/proc"
)

// TraceEvent records one executed step and its observable outcome.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	PID     int64  `json:"pid,omitempty"`
	Target  int64  `json:"target,omitempty"`
	Outcome string `json:"outcome"`
}

// Result captures a scenario execution: the step trace plus the kernel it
// ran against, for final-state assertions.
type Result struct {
	Trace  []TraceEvent
	Kernel *Kernel
}

// pidList formats a pid slice for trace outcomes.
func pidList(pids []proc.PID) string {
	return fmt.Sprint(pids)
}
