package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/matchlink/internal/harness"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
}

// simulateReport is the JSON payload for one scenario run.
type simulateReport struct {
	Scenario   string   `json:"scenario"`
	Passed     bool     `json:"passed"`
	Mismatches []string `json:"mismatches,omitempty"`
	Trace      struct {
		ToPrimary   []string `json:"to_primary"`
		ToCompanion []string `json:"to_companion"`
	} `json:"trace"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>...",
		Short: "Run two-device scenarios in-process",
		Long: `Run scripted scenarios against a primary and a companion reconciler
wired over an in-memory link, then check the scripted expectations.

Example:
  matchlink simulate scenarios/offline_repair.yaml
  matchlink simulate scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args, cmd)
		},
	}

	return cmd
}

func runSimulate(opts *SimulateOptions, paths []string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	failed := 0
	var reports []simulateReport
	for _, path := range paths {
		sc, err := harness.Load(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "load scenario", err)
		}

		dir, err := os.MkdirTemp("", "matchlink-simulate-*")
		if err != nil {
			return WrapExitError(ExitCommandError, "create working directory", err)
		}
		res, runErr := harness.Run(sc, dir)
		os.RemoveAll(dir)
		if runErr != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s", sc.Name), runErr)
		}

		mismatches := harness.Verify(sc, res)
		report := simulateReport{Scenario: sc.Name, Passed: len(mismatches) == 0}
		for _, m := range mismatches {
			report.Mismatches = append(report.Mismatches, m.Error())
		}
		report.Trace.ToPrimary = res.ToPrimary
		report.Trace.ToCompanion = res.ToCompanion
		reports = append(reports, report)

		if !report.Passed {
			failed++
		}

		if opts.Format == "text" {
			text := harness.FormatResult(sc, res)
			if report.Passed {
				text += "result: PASS\n"
			} else {
				text += fmt.Sprintf("result: FAIL\n  %s\n", strings.Join(report.Mismatches, "\n  "))
			}
			if err := out.Success(text, nil); err != nil {
				return err
			}
		}
	}

	if opts.Format == "json" {
		if err := out.Success("", reports); err != nil {
			return err
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(paths)))
	}
	return nil
}
