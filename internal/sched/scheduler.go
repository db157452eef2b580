package sched

import (
	"log/slog"
	"slices"

	"microcosm/internal/proc"
	"microcosm/internal/waitgraph"
)

// CrashHandler receives crash notifications forwarded by the scheduler.
// Implemented by the service manager; the scheduler itself holds no restart
// policy.
type CrashHandler interface {
	HandleCrash(pid proc.PID) bool
}

// Scheduler is a cooperative FIFO scheduler with a direct hand-off primitive.
type Scheduler struct {
	ready   []proc.PID
	current proc.PID
	blocked map[proc.PID]bool
	// waiting records the single outgoing wait edge owned by each blocked
	// thread, mirrored into the wait-for graph.
	waiting map[proc.PID]proc.PID
	graph   *waitgraph.Graph
	crash   CrashHandler
	log     *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCrashHandler wires the service layer's crash handler.
func WithCrashHandler(h CrashHandler) Option {
	return func(s *Scheduler) { s.crash = h }
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// New returns an empty scheduler owning a fresh wait-for graph.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		current: proc.None,
		blocked: make(map[proc.PID]bool),
		waiting: make(map[proc.PID]proc.PID),
		graph:   waitgraph.New(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCrashHandler installs the crash handler after construction. The service
// manager and scheduler reference each other, so one side has to be wired
// late.
func (s *Scheduler) SetCrashHandler(h CrashHandler) { s.crash = h }

// Enqueue appends pid to the ready-queue tail.
//
// Duplicate admission is intentionally not guarded: enqueuing an id twice
// yields two runnable entries. Callers that need at-most-once admission must
// track it themselves.
func (s *Scheduler) Enqueue(pid proc.PID) {
	s.ready = append(s.ready, pid)
}

// Preempt rotates the current thread to the queue tail (unless it is
// blocked) and promotes the queue head to current.
//
// Returns the new current thread, or (proc.None, false) when nothing is
// runnable; in that case the current slot is cleared.
func (s *Scheduler) Preempt() (proc.PID, bool) {
	if s.current != proc.None && !s.blocked[s.current] {
		s.ready = append(s.ready, s.current)
	}
	if len(s.ready) == 0 {
		s.current = proc.None
		return proc.None, false
	}
	next := s.ready[0]
	s.ready = s.ready[1:]
	s.current = next
	return next, true
}

// YieldTo hands the CPU directly to target, bypassing queue order.
//
// target is located and removed from the ready queue; if absent the call is
// a no-op and the current thread keeps running. Otherwise the previous
// current thread is appended to the tail and target runs immediately. This
// is the primitive behind the fastpath's zero-latency rendezvous.
func (s *Scheduler) YieldTo(target proc.PID) {
	i := slices.Index(s.ready, target)
	if i < 0 {
		return
	}
	s.ready = slices.Delete(s.ready, i, i+1)
	if s.current != proc.None {
		s.ready = append(s.ready, s.current)
	}
	s.current = target
}

// BlockOn blocks src until dst unblocks it.
//
// The dependency is recorded in the wait-for graph first; if that would
// close a cycle the call returns false and src stays runnable. On success
// src leaves the ready queue, and when src was the current thread a
// replacement is picked immediately via Preempt.
func (s *Scheduler) BlockOn(src, dst proc.PID) bool {
	if s.graph.AddEdge(src, dst) {
		s.log.Warn("block refused: would deadlock",
			"src", int64(src),
			"dst", int64(dst),
		)
		return false
	}

	s.blocked[src] = true
	s.waiting[src] = dst
	if i := slices.Index(s.ready, src); i >= 0 {
		s.ready = slices.Delete(s.ready, i, i+1)
	}
	if s.current == src {
		s.Preempt()
	}
	return true
}

// Unblock clears pid's wait edge and re-admits it at the ready-queue tail.
// The thread does not become current; it waits its turn behind already-ready
// threads.
func (s *Scheduler) Unblock(pid proc.PID) {
	if dst, ok := s.waiting[pid]; ok {
		s.graph.RemoveEdge(pid, dst)
		delete(s.waiting, pid)
	}
	if !s.blocked[pid] {
		return
	}
	delete(s.blocked, pid)
	s.ready = append(s.ready, pid)
}

// IsBlocked reports whether pid currently owns a wait edge.
func (s *Scheduler) IsBlocked(pid proc.PID) bool { return s.blocked[pid] }

// Current returns the running thread, or proc.None.
func (s *Scheduler) Current() proc.PID { return s.current }

// Pick returns the thread at the head of the ready queue without altering
// any state, or proc.None when nothing is runnable.
func (s *Scheduler) Pick() proc.PID {
	if len(s.ready) == 0 {
		return proc.None
	}
	return s.ready[0]
}

// Ready returns a copy of the ready queue in order. Diagnostic accessor.
func (s *Scheduler) Ready() []proc.PID { return slices.Clone(s.ready) }

// Graph exposes the wait-for graph. The external lock framework registers
// LOCK edges through this instance so lock waits and IPC waits share one
// deadlock-prevention domain.
func (s *Scheduler) Graph() *waitgraph.Graph { return s.graph }

// Crash forwards a crash notification to the service layer. Returns false
// when no handler is installed or the handler refused the restart.
func (s *Scheduler) Crash(pid proc.PID) bool {
	if s.crash == nil {
		s.log.Error("crash dropped: no handler installed", "pid", int64(pid))
		return false
	}
	s.log.Info("crash forwarded to service layer", "pid", int64(pid))
	return s.crash.HandleCrash(pid)
}
