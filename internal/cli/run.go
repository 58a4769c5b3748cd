package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/multimethod/internal/harness"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario file and report the result",
		Long: `Load a YAML scenario, execute its flow against a fresh engine, and
evaluate its assertions. Exits 0 when every expectation and assertion
holds, 1 otherwise.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runScenario(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("SCENARIO", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot load scenario", err)
	}

	result, err := harness.New().Run(scenario)
	if err != nil {
		_ = formatter.Error("RUN", err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario run failed", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeScenarioResult(formatter, scenario, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", scenario.Name))
	}
	return nil
}

func writeScenarioResult(formatter *OutputFormatter, scenario *harness.Scenario, result *harness.Result) {
	w := formatter.Writer
	status := "PASS"
	if !result.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s\n", status, scenario.Name)

	for _, step := range result.Steps {
		mark := "✓"
		if !step.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s step %d: %s (%s)\n", mark, step.Step, step.Generic, step.Outcome)
	}
	if len(result.Journal) > 0 && formatter.Verbose {
		fmt.Fprintf(w, "  journal: %v\n", result.Journal)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	if formatter.Verbose {
		formatter.VerboseLog("dispatcher misses: %d, combine builds: %d, combine reuses: %d",
			result.Stats.DispatcherMisses, result.Stats.CombineBuilds, result.Stats.CombineReuses)
	}
}
