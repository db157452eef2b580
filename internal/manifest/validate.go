package manifest

import (
	"fmt"
)

// ValidationError reports a structural problem in a compiled manifest.
type ValidationError struct {
	Service string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service %q: %s", e.Service, e.Message)
}

// Validate checks the manifest's structural invariants:
//
//   - service names are unique (post NFC normalization)
//   - pids are unique
//   - every dependency names a declared service
//   - no service depends on itself
//   - the dependency relation is acyclic
//
// Returns the first violation found.
func (m *Manifest) Validate() error {
	names := make(map[string]bool)
	pids := make(map[int64]string)

	for _, svc := range m.Services {
		if names[svc.Name] {
			return &ValidationError{Service: svc.Name, Message: "duplicate service name"}
		}
		names[svc.Name] = true

		if other, ok := pids[int64(svc.PID)]; ok {
			return &ValidationError{
				Service: svc.Name,
				Message: fmt.Sprintf("pid %d already used by %q", svc.PID, other),
			}
		}
		pids[int64(svc.PID)] = svc.Name
	}

	for _, svc := range m.Services {
		for _, dep := range svc.Deps {
			if dep == svc.Name {
				return &ValidationError{Service: svc.Name, Message: "depends on itself"}
			}
			if !names[dep] {
				return &ValidationError{
					Service: svc.Name,
					Message: fmt.Sprintf("unknown dependency %q", dep),
				}
			}
		}
	}

	return m.checkAcyclic()
}

// checkAcyclic walks the depends-on relation looking for a back edge.
func (m *Manifest) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)

	var walk func(name string) *ValidationError
	walk = func(name string) *ValidationError {
		switch state[name] {
		case visiting:
			return &ValidationError{Service: name, Message: "dependency cycle"}
		case done:
			return nil
		}
		state[name] = visiting
		if svc, ok := m.byName(name); ok {
			for _, dep := range svc.Deps {
				if err := walk(dep); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}

	for _, svc := range m.Services {
		if err := walk(svc.Name); err != nil {
			return err
		}
	}
	return nil
}
