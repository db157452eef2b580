// Package fastpath implements the capability-gated zero-copy IPC fastpath.
//
// An attempt is a single all-or-nothing transformation between one sending
// and one receiving thread. Nine preconditions are evaluated as a
// short-circuiting conjunction; the first failure increments the global
// failure counter plus that precondition's own counter and returns with the
// state byte-for-byte untouched. Only when every gate passes does Execute
// apply the six transformation steps, in order, ending with a direct
// scheduler hand-off to the receiver.
//
// Message registers travel through a tiered cache:
//
//  1. the sending core's fixed-capacity ring buffer, when it has room (hit)
//  2. the first of three shrinking, alignment-qualified zero-copy regions
//     large enough for the message (fallback)
//  3. plain register-to-register copy with no region at all (fallback)
//
// A region qualifies only if its size covers the message, its base satisfies
// the declared alignment, and its semantic tag permits message-buffer use.
//
// Stats counters are atomics with relaxed semantics, suitable for statistics
// only; the primary state follows the single-mutator model shared with the
// scheduler.
package fastpath
