package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"microcosm/internal/store"
)

// ServiceStatus is one row of the registry listing.
type ServiceStatus struct {
	PID          int64   `json:"pid"`
	Running      bool    `json:"running"`
	Deps         []int64 `json:"deps,omitempty"`
	ContractID   int64   `json:"contract_id"`
	RestartLimit int     `json:"restart_limit"`
	Restarts     int     `json:"restarts"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status <registry.db>",
		Short:         "Show the persisted service registry",
		Long:          "Read a registry snapshot database and list every service with its contract state.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		if ferr := formatter.Error(ErrCodeStore, fmt.Sprintf("registry database not found: %s", path), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, "registry database not found")
	}

	s, err := store.Open(path)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "open registry", err)
	}
	defer s.Close()

	records, err := s.ReadServices(cmd.Context())
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "read registry", err)
	}

	statuses := make([]ServiceStatus, 0, len(records))
	for _, rec := range records {
		st := ServiceStatus{
			PID:          int64(rec.PID),
			Running:      rec.Running,
			ContractID:   rec.ContractID,
			RestartLimit: rec.RestartLimit,
			Restarts:     rec.Restarts,
		}
		for _, dep := range rec.Deps {
			st.Deps = append(st.Deps, int64(dep))
		}
		statuses = append(statuses, st)
	}

	if opts.Format == "json" {
		return formatter.Success(statuses)
	}
	return printStatusTable(formatter, statuses)
}

func printStatusTable(f *OutputFormatter, statuses []ServiceStatus) error {
	if len(statuses) == 0 {
		fmt.Fprintln(f.Writer, "registry is empty")
		return nil
	}

	fmt.Fprintf(f.Writer, "%-6s %-8s %-10s %-8s %-8s %s\n",
		"PID", "RUNNING", "CONTRACT", "LIMIT", "RESTARTS", "DEPS")
	for _, st := range statuses {
		deps := make([]string, 0, len(st.Deps))
		for _, dep := range st.Deps {
			deps = append(deps, fmt.Sprint(dep))
		}
		depList := "-"
		if len(deps) > 0 {
			depList = strings.Join(deps, ",")
		}
		fmt.Fprintf(f.Writer, "%-6d %-8v %-10d %-8d %-8d %s\n",
			st.PID, st.Running, st.ContractID, st.RestartLimit, st.Restarts, depList)
	}
	return nil
}
