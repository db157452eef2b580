package harness

import (
	"fmt"

	"microcosm/internal/fastpath"
	"microcosm/internal/proc"
	"microcosm/internal/sched"
	"microcosm/internal/service"
)

// Kernel bundles one freshly constructed core: scheduler, service manager,
// IPC caches and counters, wired the way a deployment wires them.
type Kernel struct {
	Sched    *sched.Scheduler
	Services *service.Manager
	Caches   *fastpath.CoreCaches
	Stats    *fastpath.Stats
}

// NewKernel constructs a wired kernel instance. The scheduler and service
// manager reference each other: crashes flow scheduler to manager, restarts
// flow manager to ready queue. A nil token generator keeps the production
// UUIDv7 default.
func NewKernel(tokens service.CrashTokenGenerator) *Kernel {
	k := &Kernel{
		Sched:  sched.New(),
		Caches: fastpath.NewCoreCaches(1),
		Stats:  fastpath.NewStats(),
	}
	opts := []service.Option{}
	if tokens != nil {
		opts = append(opts, service.WithTokenGenerator(tokens))
	}
	k.Services = service.NewManager(k.Sched, opts...)
	k.Sched.SetCrashHandler(k.Services)
	return k
}

// tokenSequence issues the scenario's fixed crash tokens first, then keeps
// counting with generated ones. Scenarios are user input, so running out of
// listed tokens must not panic the way the test-only FixedGenerator does.
type tokenSequence struct {
	tokens []string
	next   int
}

func (g *tokenSequence) Generate() string {
	g.next++
	if g.next <= len(g.tokens) {
		return g.tokens[g.next-1]
	}
	return fmt.Sprintf("crash-%d", g.next)
}

// Run executes a scenario against a fresh kernel and returns the trace.
// Step execution never fails; refusals and precondition misses are part of
// the trace. Run itself errors only on malformed scenarios.
func Run(scenario *Scenario) (*Result, error) {
	k := NewKernel(&tokenSequence{tokens: scenario.CrashTokens})

	for _, decl := range scenario.Services {
		deps := make([]proc.PID, 0, len(decl.Deps))
		for _, d := range decl.Deps {
			deps = append(deps, proc.PID(d))
		}
		k.Services.Register(proc.PID(decl.PID), deps, decl.RestartLimit)
	}

	result := &Result{Kernel: k}
	for i, step := range scenario.Steps {
		event, err := k.execute(step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		event.Seq = i
		result.Trace = append(result.Trace, event)
	}

	return result, nil
}

// execute applies one step and reports its observable outcome.
func (k *Kernel) execute(step Step) (TraceEvent, error) {
	event := TraceEvent{Op: step.Op, PID: step.PID, Target: step.Target}

	switch step.Op {
	case OpEnqueue:
		k.Sched.Enqueue(proc.PID(step.PID))
		event.Outcome = "queued"

	case OpPreempt:
		next, ok := k.Sched.Preempt()
		if !ok {
			event.Outcome = "idle"
		} else {
			event.Outcome = fmt.Sprintf("current=%d", next)
		}

	case OpYieldTo:
		k.Sched.YieldTo(proc.PID(step.Target))
		event.Outcome = fmt.Sprintf("current=%d", k.Sched.Current())

	case OpBlockOn:
		if k.Sched.BlockOn(proc.PID(step.PID), proc.PID(step.Target)) {
			event.Outcome = "blocked"
		} else {
			event.Outcome = "refused"
		}

	case OpUnblock:
		k.Sched.Unblock(proc.PID(step.PID))
		event.Outcome = "ready " + pidList(k.Sched.Ready())

	case OpCrash:
		if k.Sched.Crash(proc.PID(step.PID)) {
			event.Outcome = "restarted"
		} else {
			event.Outcome = "refused"
		}

	case OpIPC:
		state := k.ipcState(proc.PID(step.PID), proc.PID(step.Target), step.MsgLen)
		if fastpath.Execute(&state, k.Caches, k.Stats, k.Sched) {
			event.Outcome = "delivered"
		} else {
			event.Outcome = "fallback"
		}

	default:
		return event, fmt.Errorf("unknown op %q", step.Op)
	}

	return event, nil
}

// ipcState builds a same-core synchronous send from sender to a receiver
// already parked on the endpoint. msgLen above the register capacity is
// passed through untouched so scenarios can exercise the admission gates.
func (k *Kernel) ipcState(sender, receiver proc.PID, msgLen int) fastpath.State {
	state := fastpath.State{
		Sender: fastpath.Thread{
			TID:    sender,
			Status: fastpath.StatusRunning,
		},
		Receiver: fastpath.Thread{
			TID:    receiver,
			Status: fastpath.StatusRecvBlocked,
		},
		Endpoint: fastpath.Endpoint{
			ID:    1,
			Queue: []proc.PID{receiver},
			State: fastpath.EndpointRecv,
		},
		Cap: fastpath.Capability{
			Type:   fastpath.CapEndpoint,
			Rights: fastpath.Rights{Write: true},
			Badge:  uint32(sender),
		},
		MsgLen:     msgLen,
		CurrentTID: sender,
	}
	for i := range state.Sender.MRs {
		state.Sender.MRs[i] = uint64(i)
	}
	return state
}
