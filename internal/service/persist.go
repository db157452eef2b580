package service

import (
	"context"
	"fmt"

	"microcosm/internal/proc"
	"microcosm/internal/store"
)

// Save writes the full registry snapshot through the store, replacing any
// previous snapshot.
func (m *Manager) Save(ctx context.Context, s *store.Store) error {
	records := make([]store.ServiceRecord, 0, len(m.services))
	for _, pid := range m.sortedPIDs() {
		rec := m.services[pid]
		records = append(records, store.ServiceRecord{
			PID:          pid,
			Running:      rec.running,
			Deps:         rec.deps,
			ContractID:   rec.contract.ID,
			RestartLimit: rec.contract.Limit,
			Restarts:     rec.contract.Restarts,
		})
	}
	if err := s.ReplaceServices(ctx, records); err != nil {
		return fmt.Errorf("save services: %w", err)
	}
	return nil
}

// Load replaces the manager's state with the stored snapshot. Prior
// in-memory state is discarded, and the next contract id becomes one
// greater than the highest id found.
//
// A read failure yields an empty manager rather than an error to the
// caller: recovery must be able to proceed from nothing.
func (m *Manager) Load(ctx context.Context, s *store.Store) {
	m.services = make(map[proc.PID]*record)
	m.nextID = 1

	records, err := s.ReadServices(ctx)
	if err != nil {
		m.log.Warn("registry load failed, starting empty", "error", err)
		return
	}

	var maxID int64
	for _, rec := range records {
		m.services[rec.PID] = &record{
			running: rec.Running,
			deps:    rec.Deps,
			contract: Contract{
				ID:       rec.ContractID,
				Limit:    rec.RestartLimit,
				Restarts: rec.Restarts,
			},
		}
		if rec.ContractID > maxID {
			maxID = rec.ContractID
		}
	}
	m.nextID = maxID + 1
}
