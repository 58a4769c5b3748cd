package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/multimethod/internal/compiler"
	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/harness"
	"github.com/roach88/multimethod/internal/ir"
	"github.com/roach88/multimethod/internal/store"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	TraceDB  string
	Contexts []string
}

// InvokeResult is the JSON payload of a successful invoke.
type InvokeResult struct {
	Generic string          `json:"generic"`
	Args    json.RawMessage `json:"args"`
	Result  json.RawMessage `json:"result"`
	Stats   *dispatch.Stats `json:"stats,omitempty"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <defs.cue> <generic> [json-arg...]",
		Short: "Dispatch a single call against a definitions file",
		Long: `Load a definitions file into a fresh engine and dispatch one call.

Arguments are JSON values; integers, strings, booleans, arrays, objects,
and null are accepted, floats are not.

Example:
  mm invoke defs.cue describe '42' '"label"'
  mm invoke defs.cue greet --context mode='"loud"'
  mm invoke defs.cue describe 42 --trace-db trace.db`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TraceDB, "trace-db", "", "record the call into this SQLite trace database")
	cmd.Flags().StringArrayVar(&opts.Contexts, "context", nil, "context value as name=json (repeatable)")

	return cmd
}

func runInvoke(opts *InvokeOptions, path, generic string, rawArgs []string, cmd *cobra.Command) error {
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
	if _, err := findGeneric(specs, generic); err != nil {
		_ = formatter.Error("NOT_FOUND", err.Error(), nil)
		return err
	}

	args, err := parseJSONArgs(rawArgs)
	if err != nil {
		_ = formatter.Error("BAD_ARGS", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid argument", err)
	}

	providers, err := parseContextFlags(opts.Contexts)
	if err != nil {
		_ = formatter.Error("BAD_CONTEXT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --context", err)
	}

	engineOpts := []dispatch.Option{}
	if opts.TraceDB != "" {
		st, err := store.Open(opts.TraceDB)
		if err != nil {
			_ = formatter.Error("TRACE_DB", err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot open trace database", err)
		}
		defer st.Close()
		// Resume the logical clock past the trace so successive
		// invocations keep a total order.
		last, err := st.LastSeq(cmd.Context())
		if err != nil {
			_ = formatter.Error("TRACE_DB", err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot read trace database", err)
		}
		engineOpts = append(engineOpts,
			dispatch.WithRecorder(st),
			dispatch.WithClock(dispatch.NewClockAt(last)))
	}

	engine := dispatch.New(engineOpts...)
	behaviors, err := harness.ResolveBehaviors(specs, nil)
	if err != nil {
		_ = formatter.Error("BEHAVIOR", err.Error(), nil)
		return WrapExitError(ExitFailure, "unresolved behavior", err)
	}
	if err := compiler.Register(engine, specs, behaviors, providers); err != nil {
		_ = formatter.Error("REGISTER", err.Error(), nil)
		return WrapExitError(ExitFailure, "registration failed", err)
	}

	result, err := engine.Invoke(generic, args...)
	if err != nil {
		code := dispatch.FailureCode(err)
		if code == "" {
			code = "DISPATCH"
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "dispatch failed", err)
	}

	return outputInvokeResult(formatter, generic, args, result, engine)
}

func outputInvokeResult(formatter *OutputFormatter, generic string, args []ir.Value, result ir.Value, engine *dispatch.Engine) error {
	resultJSON, err := ir.MarshalValue(result)
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}

	if formatter.Format == "json" {
		argsJSON, err := ir.MarshalValue(ir.Array(args))
		if err != nil {
			return fmt.Errorf("render args: %w", err)
		}
		payload := InvokeResult{Generic: generic, Args: argsJSON, Result: resultJSON}
		if formatter.Verbose {
			stats := engine.Stats()
			payload.Stats = &stats
		}
		return formatter.Success(payload)
	}

	fmt.Fprintln(formatter.Writer, string(resultJSON))
	if formatter.Verbose {
		stats := engine.Stats()
		formatter.VerboseLog("dispatcher misses: %d, combine builds: %d", stats.DispatcherMisses, stats.CombineBuilds)
	}
	return nil
}

// parseJSONArgs parses each positional argument as a JSON value.
func parseJSONArgs(raw []string) ([]ir.Value, error) {
	args := make([]ir.Value, len(raw))
	for i, r := range raw {
		v, err := ir.UnmarshalValue([]byte(r))
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q): %w", i, r, err)
		}
		args[i] = v
	}
	return args, nil
}

// parseContextFlags parses repeated name=json flags into fixed providers.
func parseContextFlags(flags []string) (map[string]func() ir.Value, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	providers := make(map[string]func() ir.Value, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("context flag %q: expected name=json", f)
		}
		v, err := ir.UnmarshalValue([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", name, err)
		}
		providers[name] = func() ir.Value { return v }
	}
	return providers, nil
}
