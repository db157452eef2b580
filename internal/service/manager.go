package service

import (
	"log/slog"
	"slices"
	"sort"

	"microcosm/internal/proc"
)

// Runqueue is the scheduler seam: restarted and newly registered services
// are admitted through it. Satisfied by *sched.Scheduler.
type Runqueue interface {
	Enqueue(pid proc.PID)
}

// Contract is a service's liveness contract: a unique id, the restart
// ceiling (0 means unlimited), and the restarts already consumed.
type Contract struct {
	ID       int64
	Limit    int
	Restarts int
}

// record is one supervised service.
type record struct {
	running  bool
	deps     []proc.PID
	contract Contract
}

// Manager owns the service dependency DAG and its restart policy.
type Manager struct {
	services map[proc.PID]*record
	nextID   int64
	runq     Runqueue
	tokens   CrashTokenGenerator
	log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenGenerator overrides the crash token source. Tests install a
// FixedGenerator for deterministic logs.
func WithTokenGenerator(g CrashTokenGenerator) Option {
	return func(m *Manager) { m.tokens = g }
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager returns an empty manager admitting services into runq.
// runq may be nil for registry-only use (validation, offline edits).
func NewManager(runq Runqueue, opts ...Option) *Manager {
	m := &Manager{
		services: make(map[proc.PID]*record),
		nextID:   1,
		runq:     runq,
		tokens:   UUIDv7Generator{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRunqueue installs the scheduler seam after construction. The manager
// and scheduler reference each other, so one side has to be wired late.
func (m *Manager) SetRunqueue(runq Runqueue) { m.runq = runq }

// Register creates or updates a service record.
//
// A liveness-contract id is allocated on first registration and kept on
// re-registration. Re-registering keeps the dependencies already on record
// and appends the new ones. Each proposed dependency passes the cycle guard
// individually; offending deps are skipped with a warning while the rest
// are admitted. The service is marked running and enqueued.
func (m *Manager) Register(pid proc.PID, deps []proc.PID, limit int) {
	rec, ok := m.services[pid]
	if !ok {
		rec = &record{contract: Contract{ID: m.nextID}}
		m.nextID++
		m.services[pid] = rec
	}

	rec.contract.Limit = limit
	for _, dep := range deps {
		if !m.admitDependency(pid, rec, dep) {
			m.log.Warn("dependency refused: would cycle",
				"pid", int64(pid),
				"dep", int64(dep),
			)
		}
	}

	rec.running = true
	m.enqueue(pid)
}

// AddDependency records that pid depends on dep. Returns false and leaves
// the record untouched when the edge would close a cycle in the depends-on
// relation, or when pid is unknown.
func (m *Manager) AddDependency(pid, dep proc.PID) bool {
	rec, ok := m.services[pid]
	if !ok {
		return false
	}
	if !m.admitDependency(pid, rec, dep) {
		m.log.Warn("dependency refused: would cycle",
			"pid", int64(pid),
			"dep", int64(dep),
		)
		return false
	}
	return true
}

// admitDependency appends dep to rec.deps unless dep already transitively
// depends on pid. The reachability check runs over the depends-on adjacency
// before the edge is added, so no rollback is needed.
func (m *Manager) admitDependency(pid proc.PID, rec *record, dep proc.PID) bool {
	if dep == pid || m.dependsOn(dep, pid) {
		return false
	}
	if !slices.Contains(rec.deps, dep) {
		rec.deps = append(rec.deps, dep)
	}
	return true
}

// dependsOn reports whether from transitively depends on to.
func (m *Manager) dependsOn(from, to proc.PID) bool {
	visited := make(map[proc.PID]bool)
	var walk func(proc.PID) bool
	walk = func(node proc.PID) bool {
		if node == to {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		rec, ok := m.services[node]
		if !ok {
			return false
		}
		for _, next := range rec.deps {
			if walk(next) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// RemoveDependency drops dep from pid's dependency list. Unknown ids are a
// no-op.
func (m *Manager) RemoveDependency(pid, dep proc.PID) {
	rec, ok := m.services[pid]
	if !ok {
		return
	}
	rec.deps = slices.DeleteFunc(rec.deps, func(d proc.PID) bool { return d == dep })
}

// SetRestartLimit updates the restart ceiling. 0 means unlimited.
func (m *Manager) SetRestartLimit(pid proc.PID, limit int) {
	if rec, ok := m.services[pid]; ok {
		rec.contract.Limit = limit
	}
}

// Unregister deletes the record and scrubs pid from every other service's
// dependency list.
func (m *Manager) Unregister(pid proc.PID) {
	delete(m.services, pid)
	for _, rec := range m.services {
		rec.deps = slices.DeleteFunc(rec.deps, func(d proc.PID) bool { return d == pid })
	}
}

// HandleCrash marks pid not-running and, budget permitting, restarts it and
// every transitive dependent exactly once.
//
// Returns false for unknown ids and for services whose restart budget is
// spent; in the latter case the service stays down until an operator raises
// the limit or re-registers it. Implements the scheduler's CrashHandler.
func (m *Manager) HandleCrash(pid proc.PID) bool {
	rec, ok := m.services[pid]
	if !ok {
		m.log.Warn("crash for unknown service", "pid", int64(pid))
		return false
	}

	token := m.tokens.Generate()
	rec.running = false

	if rec.contract.Limit != 0 && rec.contract.Restarts >= rec.contract.Limit {
		m.log.Warn("restart refused: budget exhausted",
			"crash", token,
			"pid", int64(pid),
			"limit", rec.contract.Limit,
			"restarts", rec.contract.Restarts,
		)
		return false
	}

	visited := make(map[proc.PID]bool)
	m.restartTree(pid, token, visited)
	return true
}

// restartTree restarts pid, then every service whose dependency list names
// an already-visited node, depth first. The shared visited set makes each
// service in a diamond-shaped closure restart exactly once. The resulting
// order is a DFS pre-order from the crashed node, not a topological sort.
func (m *Manager) restartTree(pid proc.PID, token string, visited map[proc.PID]bool) {
	visited[pid] = true

	rec := m.services[pid]
	rec.contract.Restarts++
	rec.running = true
	m.enqueue(pid)
	m.log.Info("service restarted",
		"crash", token,
		"pid", int64(pid),
		"restarts", rec.contract.Restarts,
	)

	// Sorted scan keeps sibling restart order deterministic across runs.
	for _, dependent := range m.sortedPIDs() {
		if visited[dependent] {
			continue
		}
		if slices.Contains(m.services[dependent].deps, pid) {
			m.restartTree(dependent, token, visited)
		}
	}
}

// Contract returns pid's liveness contract, or the zero Contract for
// unknown ids.
func (m *Manager) Contract(pid proc.PID) Contract {
	if rec, ok := m.services[pid]; ok {
		return rec.contract
	}
	return Contract{}
}

// IsRunning reports whether pid is registered and currently running.
func (m *Manager) IsRunning(pid proc.PID) bool {
	rec, ok := m.services[pid]
	return ok && rec.running
}

// Services returns all registered service ids in ascending order.
func (m *Manager) Services() []proc.PID { return m.sortedPIDs() }

// Dependencies returns a copy of pid's dependency list, nil for unknown ids.
func (m *Manager) Dependencies(pid proc.PID) []proc.PID {
	rec, ok := m.services[pid]
	if !ok {
		return nil
	}
	return slices.Clone(rec.deps)
}

func (m *Manager) sortedPIDs() []proc.PID {
	pids := make([]proc.PID, 0, len(m.services))
	for pid := range m.services {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

func (m *Manager) enqueue(pid proc.PID) {
	if m.runq != nil {
		m.runq.Enqueue(pid)
	}
}
