package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
	"github.com/roach88/multimethod/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	DB      string
	Generic string
	Token   string
	Outcome string
	Failure string
	Applied string
	MinSeq  int64
	MaxSeq  int64
	Limit   int
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List recorded calls from a trace database",
		Long: `Read calls from a SQLite trace database in deterministic order
(sequence, then call id).

Example:
  mm trace --db trace.db
  mm trace --db trace.db --generic describe --outcome error --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the trace database (required)")
	cmd.Flags().StringVar(&opts.Generic, "generic", "", "only calls to this generic")
	cmd.Flags().StringVar(&opts.Token, "token", "", "only calls with this token")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only calls with this outcome (ok or error)")
	cmd.Flags().StringVar(&opts.Failure, "failure", "", "only calls with this failure code")
	cmd.Flags().StringVar(&opts.Applied, "applied", "", "only calls during which this method id ran")
	cmd.Flags().Int64Var(&opts.MinSeq, "min-seq", 0, "only calls with seq >= this")
	cmd.Flags().Int64Var(&opts.MaxSeq, "max-seq", 0, "only calls with seq <= this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of calls to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.DB); err != nil {
		_ = formatter.Error("TRACE_DB", err.Error(), nil)
		return WrapExitError(ExitCommandError, "trace database not found", err)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error("TRACE_DB", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open trace database", err)
	}
	defer st.Close()

	records, err := st.ReadCalls(cmd.Context(), store.CallFilter{
		Generic:     opts.Generic,
		Token:       opts.Token,
		Outcome:     opts.Outcome,
		FailureCode: opts.Failure,
		Applied:     opts.Applied,
		MinSeq:      opts.MinSeq,
		MaxSeq:      opts.MaxSeq,
		Limit:       opts.Limit,
	})
	if err != nil {
		_ = formatter.Error("READ", err.Error(), nil)
		return WrapExitError(ExitFailure, "cannot read calls", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "no calls recorded")
		return nil
	}
	for _, rec := range records {
		writeCallRecord(formatter, rec)
	}
	formatter.VerboseLog("%d call(s)", len(records))
	return nil
}

func writeCallRecord(formatter *OutputFormatter, rec dispatch.CallRecord) {
	w := formatter.Writer
	if rec.Outcome == "ok" {
		result := "<unrenderable>"
		if data, err := ir.MarshalValue(rec.Result); err == nil {
			result = string(data)
		}
		fmt.Fprintf(w, "%4d  %s  %s%s => %s\n", rec.Seq, rec.Token, rec.Generic, renderArgs(rec.Args), result)
	} else {
		fmt.Fprintf(w, "%4d  %s  %s%s => error %s\n", rec.Seq, rec.Token, rec.Generic, renderArgs(rec.Args), rec.FailureCode)
	}
	if formatter.Verbose {
		for _, id := range rec.Applied {
			fmt.Fprintf(w, "      applied %s\n", id)
		}
	}
}

// renderArgs renders an argument list in display form, or a placeholder
// when rendering fails.
func renderArgs(args ir.Array) string {
	data, err := ir.MarshalValue(args)
	if err != nil {
		return "<unrenderable>"
	}
	return string(data)
}
