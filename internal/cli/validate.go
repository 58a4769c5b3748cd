package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/multimethod/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
	Generics []string                   `json:"generics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <defs.cue>",
		Short: "Compile and validate generic-function definitions",
		Long: `Compile a CUE definitions file and run schema validation.

Reports structural errors (duplicate method identities, malformed
qualifiers, unhashable eql values) and non-blocking lint warnings
(dispatch-key mismatches between methods of one generic).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
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

	specs, err := LoadDefinitions(path)
	if err != nil {
		_ = formatter.Error("COMPILE", err.Error(), nil)
		return err
	}
	formatter.VerboseLog("compiled %d generic(s) from %s", len(specs), path)

	result := ValidationResult{Valid: true}
	for _, spec := range specs {
		result.Generics = append(result.Generics, spec.Name)
		result.Warnings = append(result.Warnings, compiler.Lint(spec)...)
	}
	result.Errors = compiler.ValidateAll(specs)

	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}

	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d generic(s) valid\n", len(result.Generics))
	for _, warn := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s\n", warn.Error())
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		_ = formatter.Success(result)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s\n", warn.Error())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
