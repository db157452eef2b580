package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcosm/internal/proc"
	"microcosm/internal/store"
)

func seedRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	records := []store.ServiceRecord{
		{PID: 1, Running: true, ContractID: 1, RestartLimit: 2},
		{PID: 2, Running: false, Deps: []proc.PID{1}, ContractID: 2, RestartLimit: 1, Restarts: 1},
	}
	require.NoError(t, s.ReplaceServices(context.Background(), records))
	return path
}

func TestStatus_Table(t *testing.T) {
	path := seedRegistry(t)

	buf := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "PID")
	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "false")
}

func TestStatus_JSON(t *testing.T) {
	path := seedRegistry(t)

	buf := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	payload, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var statuses []ServiceStatus
	require.NoError(t, json.Unmarshal(payload, &statuses))
	require.Len(t, statuses, 2)
	assert.Equal(t, int64(1), statuses[0].PID)
	assert.Equal(t, []int64{1}, statuses[1].Deps)
	assert.Equal(t, 1, statuses[1].Restarts)
}

func TestStatus_EmptyRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	s.Close()

	buf := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "registry is empty")
}

func TestStatus_MissingDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "not found")
}
