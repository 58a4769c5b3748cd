package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/multimethod/internal/compiler"
	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/harness"
	"github.com/roach88/multimethod/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	DB      string
	Generic string
	Token   string
	Limit   int
}

// ReplayResult is the JSON payload of a replay run.
type ReplayResult struct {
	Calls       int                `json:"calls"`
	Divergences []store.Divergence `json:"divergences"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <defs.cue>",
		Short: "Re-dispatch recorded calls and report divergences",
		Long: `Load a definitions file into a fresh engine, re-invoke every recorded
call from the trace database, and compare outcomes and results against
what was recorded. Exits 0 when the trace replays cleanly, 1 when any
call diverges.

Example:
  mm replay --db trace.db defs.cue
  mm replay --db trace.db --generic describe defs.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the trace database (required)")
	cmd.Flags().StringVar(&opts.Generic, "generic", "", "only replay calls to this generic")
	cmd.Flags().StringVar(&opts.Token, "token", "", "only replay calls with this token")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of calls to replay")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
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

	specs, err := LoadDefinitions(path)
	if err != nil {
		_ = formatter.Error("COMPILE", err.Error(), nil)
		return err
	}

	// Replay engines carry no recorder: re-invoking must not append to
	// the trace being compared against.
	engine := dispatch.New()
	behaviors, err := harness.ResolveBehaviors(specs, nil)
	if err != nil {
		_ = formatter.Error("BEHAVIOR", err.Error(), nil)
		return WrapExitError(ExitFailure, "unresolved behavior", err)
	}
	if err := compiler.Register(engine, specs, behaviors, nil); err != nil {
		_ = formatter.Error("REGISTER", err.Error(), nil)
		return WrapExitError(ExitFailure, "registration failed", err)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error("TRACE_DB", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open trace database", err)
	}
	defer st.Close()

	filter := store.CallFilter{Generic: opts.Generic, Token: opts.Token, Limit: opts.Limit}
	records, err := st.ReadCalls(cmd.Context(), filter)
	if err != nil {
		_ = formatter.Error("READ", err.Error(), nil)
		return WrapExitError(ExitFailure, "cannot read calls", err)
	}
	divergences, err := st.Replay(cmd.Context(), engine, filter)
	if err != nil {
		_ = formatter.Error("REPLAY", err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	if formatter.Format == "json" {
		payload := ReplayResult{Calls: len(records), Divergences: divergences}
		if err := formatter.Success(payload); err != nil {
			return err
		}
	} else {
		writeReplayResult(formatter, len(records), divergences)
	}

	if len(divergences) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d divergence(s)", len(divergences)))
	}
	return nil
}

func writeReplayResult(formatter *OutputFormatter, calls int, divergences []store.Divergence) {
	w := formatter.Writer
	if len(divergences) == 0 {
		fmt.Fprintf(w, "✓ %d call(s) replayed cleanly\n", calls)
		return
	}
	fmt.Fprintf(w, "✗ %d divergence(s) across %d call(s)\n", len(divergences), calls)
	for _, d := range divergences {
		fmt.Fprintf(w, "  %s\n", d.String())
	}
}
