package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/matchlink/internal/harness"
)

// validateReport is the JSON payload for one validated file.
type validateReport struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without running them",
		Long: `Parse scenario files and check structural soundness: required
fields, unique roster refs, resolvable player references, and one
action per step. Nothing is executed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	invalid := 0
	var reports []validateReport
	for _, path := range paths {
		report := validateReport{Path: path, Valid: true}
		if _, err := harness.Load(path); err != nil {
			report.Valid = false
			report.Error = err.Error()
			invalid++
		}
		reports = append(reports, report)

		if opts.Format == "text" {
			line := fmt.Sprintf("%s: ok", path)
			if !report.Valid {
				line = fmt.Sprintf("%s: %s", path, report.Error)
			}
			if err := out.Success(line, nil); err != nil {
				return err
			}
		}
	}

	if opts.Format == "json" {
		if err := out.Success("", reports); err != nil {
			return err
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d files invalid", invalid, len(paths)))
	}
	return nil
}
