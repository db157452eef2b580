// Package proc defines the process identity types shared by the kernel core.
//
// A PID is an opaque, comparable handle. The core never dereferences or
// interprets it beyond equality; identities are allocated and owned by the
// surrounding system (spawn server, test harness, CLI).
package proc

// PID identifies a schedulable unit: a kernel thread or a supervised service.
type PID int64

// None is the sentinel returned when no thread is running or selected.
const None PID = -1
