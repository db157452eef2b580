package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"microcosm/internal/harness"
)

// ScenarioResult summarizes one scenario execution.
type ScenarioResult struct {
	Name     string               `json:"name"`
	Passed   bool                 `json:"passed"`
	Failures []string             `json:"failures,omitempty"`
	Trace    []harness.TraceEvent `json:"trace,omitempty"`
}

// RunSummary aggregates a whole run.
type RunSummary struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml> [more.yaml...]",
		Short: "Execute kernel scenarios",
		Long: `Execute one or more YAML scenarios against a fresh kernel each
and evaluate their assertions.

Exit code 0 when every scenario passes, 1 when any assertion fails,
2 when a scenario cannot be loaded or executed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args, showTrace, cmd)
		},
	}

	cmd.Flags().BoolVar(&showTrace, "trace", false, "include the step trace in the output")

	return cmd
}

func runScenarios(opts *RootOptions, paths []string, showTrace bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	summary := RunSummary{}
	for _, path := range paths {
		formatter.VerboseLog("loading scenario %s", path)

		scenario, err := harness.LoadScenario(path)
		if err != nil {
			if ferr := formatter.Error(ErrCodeScenario, err.Error(), path); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitCommandError, "scenario load failed", err)
		}

		result, err := harness.Run(scenario)
		if err != nil {
			if ferr := formatter.Error(ErrCodeScenario, err.Error(), scenario.Name); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitCommandError, "scenario execution failed", err)
		}

		sr := ScenarioResult{Name: scenario.Name, Passed: true}
		for _, failure := range harness.CheckAssertions(scenario, result) {
			sr.Passed = false
			sr.Failures = append(sr.Failures, failure.Error())
		}
		if showTrace {
			sr.Trace = result.Trace
		}

		summary.Total++
		if sr.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios = append(summary.Scenarios, sr)
	}

	if err := outputSummary(formatter, opts, &summary, showTrace); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
	}
	return nil
}

func outputSummary(f *OutputFormatter, opts *RootOptions, summary *RunSummary, showTrace bool) error {
	if opts.Format == "json" {
		return f.Success(summary)
	}

	for _, sr := range summary.Scenarios {
		status := "PASS"
		if !sr.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(f.Writer, "%s  %s\n", status, sr.Name)
		for _, failure := range sr.Failures {
			fmt.Fprintf(f.Writer, "      %s\n", failure)
		}
		if showTrace {
			for _, ev := range sr.Trace {
				fmt.Fprintf(f.Writer, "      [%d] %s -> %s\n", ev.Seq, ev.Op, ev.Outcome)
			}
		}
	}
	fmt.Fprintf(f.Writer, "%d scenarios: %d passed, %d failed\n",
		summary.Total, summary.Passed, summary.Failed)
	return nil
}
