// Package waitgraph maintains the kernel's wait-for dependency graph.
//
// The graph records "X is waiting on Y" edges between thread identifiers and
// refuses any insertion that would close a cycle. Deadlock is therefore
// prevented at admission time rather than detected after a stall: callers
// treat a true return from AddEdge as "operation refused, do not block".
//
// Two views coexist over the same adjacency:
//   - the plain edge set used by the scheduler's single-resource wait model
//   - a typed side list (IPC / RESOURCE / LOCK) carrying an opaque resource
//     handle, used by the external lock framework which may hold several
//     concurrent lock waits per thread
//
// The cycle check is a DFS reachability test, O(V+E) per insertion. That is
// acceptable at kernel thread and lock counts; very large graphs would need
// incremental SCC maintenance instead.
//
// The graph performs no internal locking. All mutators assume a single
// logical writer, which is the kernel's own serialization boundary.
package waitgraph
