// Package sched implements the cooperative kernel scheduler.
//
// The scheduler keeps a FIFO ready queue and a current-thread slot. Ordering
// is FIFO with one deliberate exception: YieldTo pulls a specific thread out
// of the queue and runs it immediately, which is the direct hand-off
// primitive used by the IPC fastpath for zero-latency rendezvous.
//
// Blocking goes through the wait-for graph. BlockOn refuses to block a
// thread when recording the dependency would close a cycle, so deadlock is
// avoided by refusal rather than detected after a stall. Each blocked thread
// owns exactly one outgoing wait edge; Unblock removes it and re-admits the
// thread at the queue tail.
//
// The scheduler holds no restart policy. Crash notifications are forwarded
// verbatim to the registered CrashHandler (the service manager), which
// re-populates the ready queue through Enqueue.
//
// All methods assume a single logical mutator; see the waitgraph package for
// the shared serialization model.
package sched
