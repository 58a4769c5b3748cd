package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions carries the persistent flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the mm command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mm",
		Short: "mm - multiple-dispatch method resolution",
		Long:  "Compile generic-function definitions, dispatch calls, and audit dispatch traces.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	for _, sub := range []*cobra.Command{
		NewValidateCommand(opts),
		NewDescribeCommand(opts),
		NewInvokeCommand(opts),
		NewRunCommand(opts),
		NewTraceCommand(opts),
		NewReplayCommand(opts),
	} {
		cmd.AddCommand(sub)
	}

	return cmd
}
