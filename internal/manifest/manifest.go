package manifest

import (
	"sort"

	"microcosm/internal/proc"
	"microcosm/internal/service"
)

// Service is one declared service entry.
type Service struct {
	Name         string
	PID          proc.PID
	Deps         []string
	RestartLimit int
}

// Manifest is a validated set of service declarations.
type Manifest struct {
	Services []Service
}

// byName returns the entry for a service name, if declared.
func (m *Manifest) byName(name string) (Service, bool) {
	for _, svc := range m.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// Apply registers every declared service with the manager, in ascending
// pid order, resolving dependency names to pids. The manifest must have
// passed Validate; Apply does not re-check.
func (m *Manifest) Apply(mgr *service.Manager) {
	ordered := make([]Service, len(m.Services))
	copy(ordered, m.Services)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PID < ordered[j].PID })

	for _, svc := range ordered {
		deps := make([]proc.PID, 0, len(svc.Deps))
		for _, name := range svc.Deps {
			if dep, ok := m.byName(name); ok {
				deps = append(deps, dep.PID)
			}
		}
		mgr.Register(svc.PID, deps, svc.RestartLimit)
	}
}
