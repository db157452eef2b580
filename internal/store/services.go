package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"microcosm/internal/proc"
)

// ServiceRecord is one row of the registry snapshot.
type ServiceRecord struct {
	PID          proc.PID
	Running      bool
	Deps         []proc.PID
	ContractID   int64
	RestartLimit int
	Restarts     int
}

// ReplaceServices atomically replaces the registry snapshot with the given
// records. An empty slice clears the table. Deps are serialized as a JSON
// array in registration order.
func (s *Store) ReplaceServices(ctx context.Context, records []ServiceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace services: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM services`); err != nil {
		return fmt.Errorf("replace services: clear: %w", err)
	}

	for _, rec := range records {
		depsJSON, err := marshalDeps(rec.Deps)
		if err != nil {
			return fmt.Errorf("replace services: pid %d: %w", rec.PID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO services
			(pid, running, deps, contract_id, restart_limit, restarts)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			int64(rec.PID),
			boolToInt(rec.Running),
			depsJSON,
			rec.ContractID,
			rec.RestartLimit,
			rec.Restarts,
		)
		if err != nil {
			return fmt.Errorf("replace services: insert pid %d: %w", rec.PID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace services: commit: %w", err)
	}

	return nil
}

// ReadServices returns the registry snapshot ordered by pid.
func (s *Store) ReadServices(ctx context.Context) ([]ServiceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pid, running, deps, contract_id, restart_limit, restarts
		FROM services
		ORDER BY pid
	`)
	if err != nil {
		return nil, fmt.Errorf("read services: %w", err)
	}
	defer rows.Close()

	var records []ServiceRecord
	for rows.Next() {
		var (
			rec      ServiceRecord
			pid      int64
			running  int
			depsJSON string
		)
		if err := rows.Scan(&pid, &running, &depsJSON, &rec.ContractID, &rec.RestartLimit, &rec.Restarts); err != nil {
			return nil, fmt.Errorf("read services: scan: %w", err)
		}
		rec.PID = proc.PID(pid)
		rec.Running = running != 0
		rec.Deps, err = unmarshalDeps(depsJSON)
		if err != nil {
			return nil, fmt.Errorf("read services: pid %d: %w", pid, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read services: %w", err)
	}

	return records, nil
}

// MaxContractID returns the highest contract id in the snapshot, or 0 when
// the table is empty. Callers allocate fresh ids above this value.
func (s *Store) MaxContractID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(contract_id) FROM services`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max contract id: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// marshalDeps serializes a dependency list as a JSON array, preserving
// registration order. A nil list serializes as [].
func marshalDeps(deps []proc.PID) (string, error) {
	ids := make([]int64, 0, len(deps))
	for _, d := range deps {
		ids = append(ids, int64(d))
	}

	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal deps: %w", err)
	}
	return string(b), nil
}

// unmarshalDeps parses the JSON dependency array.
func unmarshalDeps(s string) ([]proc.PID, error) {
	var raw []int64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal deps: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	deps := make([]proc.PID, len(raw))
	for i, v := range raw {
		deps[i] = proc.PID(v)
	}
	return deps, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
