package harness

import (
	"fmt"

	"microcosm/internal/proc"
)

// CheckAssertions evaluates every assertion against the result. All
// failures are collected so a broken scenario reports everything at once.
func CheckAssertions(scenario *Scenario, result *Result) []error {
	var failures []error
	for i, a := range scenario.Assertions {
		if err := checkAssertion(&a, result); err != nil {
			failures = append(failures, fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err))
		}
	}
	return failures
}

func checkAssertion(a *Assertion, result *Result) error {
	k := result.Kernel

	switch a.Type {
	case AssertRunning:
		got := k.Services.IsRunning(proc.PID(a.PID))
		if got != a.Want {
			return fmt.Errorf("running(%d) = %v, want %v", a.PID, got, a.Want)
		}

	case AssertRestarts:
		got := k.Services.Contract(proc.PID(a.PID)).Restarts
		if got != a.Count {
			return fmt.Errorf("restarts(%d) = %d, want %d", a.PID, got, a.Count)
		}

	case AssertReadyOrder:
		want := make([]proc.PID, 0, len(a.PIDs))
		for _, pid := range a.PIDs {
			want = append(want, proc.PID(pid))
		}
		got := k.Sched.Ready()
		if !pidSlicesEqual(got, want) {
			return fmt.Errorf("ready queue = %v, want %v", got, want)
		}

	case AssertCurrent:
		got := k.Sched.Current()
		if got != proc.PID(a.PID) {
			return fmt.Errorf("current = %d, want %d", got, a.PID)
		}

	case AssertBlocked:
		got := k.Sched.IsBlocked(proc.PID(a.PID))
		if got != a.Want {
			return fmt.Errorf("blocked(%d) = %v, want %v", a.PID, got, a.Want)
		}

	case AssertFastpathStats:
		checks := []struct {
			name string
			got  uint64
			want int
		}{
			{"success", k.Stats.Success(), a.Success},
			{"failure", k.Stats.Failure(), a.Failure},
			{"hits", k.Stats.Hits(), a.Hits},
			{"fallbacks", k.Stats.Fallbacks(), a.Fallbacks},
		}
		for _, c := range checks {
			if c.got != uint64(c.want) {
				return fmt.Errorf("%s = %d, want %d", c.name, c.got, c.want)
			}
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	return nil
}

func pidSlicesEqual(a, b []proc.PID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
