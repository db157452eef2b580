package waitgraph

import (
	"slices"

	"microcosm/internal/proc"
)

// EdgeKind classifies a wait-for edge by the resource class being waited on.
type EdgeKind int

const (
	// EdgeIPC marks a thread blocked on an IPC rendezvous partner.
	EdgeIPC EdgeKind = iota
	// EdgeResource marks a thread blocked on a generic kernel resource.
	EdgeResource
	// EdgeLock marks a thread blocked on a mutual-exclusion primitive.
	// Registered by the external lock framework, not by the scheduler.
	EdgeLock
)

// Resource is an opaque handle naming the contended object behind a typed
// edge (for lock edges, typically the lock's address or registry slot). The
// graph compares handles for equality and nothing else.
type Resource uint64

// Edge is one typed "From waits on To" relation with its metadata.
type Edge struct {
	From      proc.PID
	To        proc.PID
	Kind      EdgeKind
	Resource  Resource
	Timestamp int64
}

// Graph is a directed wait-for graph with admission-time cycle rejection.
//
// The zero value is not ready to use; construct with New.
type Graph struct {
	edges map[proc.PID][]proc.PID
	meta  []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[proc.PID][]proc.PID)}
}

// hasPath reports whether to is reachable from from over the current edges.
// visited guards against revisiting nodes; the graph itself is acyclic, but
// the check runs while a candidate edge is provisionally inserted.
func (g *Graph) hasPath(from, to proc.PID, visited map[proc.PID]bool) bool {
	if from == to {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true
	for _, next := range g.edges[from] {
		if g.hasPath(next, to, visited) {
			return true
		}
	}
	return false
}

// AddEdge inserts the edge src -> dst unless doing so would close a cycle.
//
// Returns true when the edge was rejected: the insertion is rolled back and
// the graph is left exactly as it was. Returns false when the edge was
// committed. Callers must treat true as "would deadlock, refuse to block".
func (g *Graph) AddEdge(src, dst proc.PID) bool {
	g.edges[src] = append(g.edges[src], dst)
	if g.hasPath(dst, src, make(map[proc.PID]bool)) {
		g.removeAdjacency(src, dst)
		return true
	}
	return false
}

// AddTypedEdge inserts a typed edge with metadata under the same cycle
// semantics as AddEdge. On rejection both the adjacency and the metadata
// entry are rolled back.
func (g *Graph) AddTypedEdge(e Edge) bool {
	g.edges[e.From] = append(g.edges[e.From], e.To)
	g.meta = append(g.meta, e)
	if g.hasPath(e.To, e.From, make(map[proc.PID]bool)) {
		g.removeAdjacency(e.From, e.To)
		g.meta = g.meta[:len(g.meta)-1]
		return true
	}
	return false
}

// AddLockEdge records that waiter is about to block on a lock held by holder.
//
// A true return means the wait would deadlock; the lock framework must not
// block the thread. The resource handle identifies the lock so the edge can
// be removed on acquisition or abandonment.
func (g *Graph) AddLockEdge(waiter, holder proc.PID, resource Resource) bool {
	return g.AddTypedEdge(Edge{
		From:     waiter,
		To:       holder,
		Kind:     EdgeLock,
		Resource: resource,
	})
}

// RemoveEdge deletes every src -> dst edge and any matching typed metadata.
// Unknown edges are ignored.
func (g *Graph) RemoveEdge(src, dst proc.PID) {
	targets, ok := g.edges[src]
	if ok {
		targets = slices.DeleteFunc(targets, func(t proc.PID) bool { return t == dst })
		if len(targets) == 0 {
			delete(g.edges, src)
		} else {
			g.edges[src] = targets
		}
	}
	g.meta = slices.DeleteFunc(g.meta, func(e Edge) bool {
		return e.From == src && e.To == dst
	})
}

// RemoveLockEdge deletes the lock edge owned by waiter on the given resource.
// The holder is recovered from the edge metadata.
func (g *Graph) RemoveLockEdge(waiter proc.PID, resource Resource) {
	for i, e := range g.meta {
		if e.From == waiter && e.Kind == EdgeLock && e.Resource == resource {
			holder := e.To
			g.meta = slices.Delete(g.meta, i, i+1)
			g.removeAdjacency(waiter, holder)
			return
		}
	}
}

// Clear removes every edge touching pid, in either direction. Used when a
// thread terminates or a service is unregistered.
func (g *Graph) Clear(pid proc.PID) {
	delete(g.edges, pid)
	for src, targets := range g.edges {
		targets = slices.DeleteFunc(targets, func(t proc.PID) bool { return t == pid })
		if len(targets) == 0 {
			delete(g.edges, src)
		} else {
			g.edges[src] = targets
		}
	}
	g.meta = slices.DeleteFunc(g.meta, func(e Edge) bool {
		return e.From == pid || e.To == pid
	})
}

// Waiters returns every thread with a direct edge into pid. The result is
// the set of threads that may become runnable when pid releases resources
// or crashes.
func (g *Graph) Waiters(pid proc.PID) []proc.PID {
	var waiters []proc.PID
	for from, targets := range g.edges {
		for _, to := range targets {
			if to == pid {
				waiters = append(waiters, from)
			}
		}
	}
	return waiters
}

// Edges returns the number of committed edges. Diagnostic accessor.
func (g *Graph) Edges() int {
	n := 0
	for _, targets := range g.edges {
		n += len(targets)
	}
	return n
}

// TypedEdges returns a copy of the typed edge metadata. Diagnostic accessor.
func (g *Graph) TypedEdges() []Edge {
	return slices.Clone(g.meta)
}

// ExtractCycle returns the ordered cycle containing node, or nil when node
// is not part of one. It is a diagnostic: admission control keeps the graph
// acyclic, so a non-empty result indicates the caller bypassed AddEdge.
//
// The DFS keeps an explicit recursion stack so the cycle can be cut out of
// the current path once a back edge is found.
func (g *Graph) ExtractCycle(node proc.PID) []proc.PID {
	var path []proc.PID
	visited := make(map[proc.PID]bool)
	onStack := make(map[proc.PID]bool)

	var dfs func(current proc.PID) bool
	dfs = func(current proc.PID) bool {
		if onStack[current] {
			if i := slices.Index(path, current); i >= 0 {
				path = path[i:]
			}
			return true
		}
		if visited[current] {
			return false
		}
		visited[current] = true
		onStack[current] = true
		path = append(path, current)

		for _, next := range g.edges[current] {
			if dfs(next) {
				return true
			}
		}

		delete(onStack, current)
		path = path[:len(path)-1]
		return false
	}

	if dfs(node) {
		return path
	}
	return nil
}

// removeAdjacency deletes the first src -> dst entry from the adjacency.
func (g *Graph) removeAdjacency(src, dst proc.PID) {
	targets, ok := g.edges[src]
	if !ok {
		return
	}
	if i := slices.Index(targets, dst); i >= 0 {
		targets = slices.Delete(targets, i, i+1)
	}
	if len(targets) == 0 {
		delete(g.edges, src)
	} else {
		g.edges[src] = targets
	}
}
