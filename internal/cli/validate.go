package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"microcosm/internal/manifest"
)

// ValidationResult holds manifest validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Services int      `json:"services"`
	Errors   []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.cue>",
		Short: "Validate a service manifest",
		Long: `Validate a CUE service manifest without applying it.

Checks syntax, required fields, pid uniqueness, dependency resolution
and acyclicity of the dependency relation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("compiling manifest %s", path)

	m, err := manifest.CompileFile(path)
	if err != nil {
		if ferr := formatter.Error(ErrCodeCompile, err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "manifest invalid")
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Services: len(m.Services)})
	}
	return formatter.Success(fmt.Sprintf("manifest valid: %d services", len(m.Services)))
}
