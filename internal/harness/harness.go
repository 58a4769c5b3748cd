package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/multimethod/internal/compiler"
	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
	"github.com/roach88/multimethod/internal/store"
	"github.com/roach88/multimethod/internal/testutil"
)

// Harness executes scenarios. Each Run gets a fresh engine, a fresh
// in-memory trace store, and a deterministic token sequence, so runs are
// isolated and traces reproducible.
type Harness struct {
	logger    *slog.Logger
	behaviors compiler.Behaviors
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to engines the harness creates.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithBehavior registers an extra behavior, taking priority over the
// built-in library.
func WithBehavior(name string, body dispatch.Body) Option {
	return func(h *Harness) { h.behaviors[name] = body }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:    slog.Default(),
		behaviors: compiler.Behaviors{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario and returns the result.
//
// A scenario error (unreadable definitions, unknown behavior, registration
// failure) returns a non-nil error. Expectation and assertion failures do
// not: they land in Result.Errors with Pass false.
func (h *Harness) Run(s *Scenario) (*Result, error) {
	result := NewResult()
	j := &journal{}

	specs, err := h.compileDefs(s.Defs)
	if err != nil {
		return nil, err
	}

	behaviors, err := behaviorsFor(specs, j, h.behaviors)
	if err != nil {
		return nil, err
	}

	providers, err := contextProviders(s.Contexts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}
	defer st.Close()

	engine := dispatch.New(
		dispatch.WithLogger(h.logger),
		dispatch.WithRecorder(st),
		dispatch.WithTokenGenerator(testutil.NewPrefixTokenGenerator(s.Token)),
	)

	for _, d := range s.Derive {
		if err := engine.DeriveSymbol(d.Child, d.Parent); err != nil {
			return nil, fmt.Errorf("derive %s from %s: %w", d.Child, d.Parent, err)
		}
	}

	if err := compiler.Register(engine, specs, behaviors, providers); err != nil {
		return nil, fmt.Errorf("register definitions: %w", err)
	}

	steps := testutil.NewDeterministicClock()
	for i, step := range s.Flow {
		args, err := flowArgs(step.Args)
		if err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
		value, invokeErr := engine.Invoke(step.Invoke, args...)
		h.checkExpect(result, steps.Next(), step, value, invokeErr)
	}

	records, err := st.ReadCalls(context.Background(), store.CallFilter{})
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, rec := range records {
		result.Trace = append(result.Trace, TraceEvent{
			Generic: rec.Generic,
			Args:    rec.Args,
			Outcome: rec.Outcome,
			Result:  rec.Result,
			Failure: rec.FailureCode,
			Seq:     rec.Seq,
		})
	}

	result.Stats = engine.Stats()
	result.Journal = j.snapshot()

	for i, assertion := range s.Assertions {
		evaluateAssertion(result, i, assertion)
	}

	return result, nil
}

// checkExpect validates one flow step's outcome against its expect clause.
func (h *Harness) checkExpect(result *Result, stepNum int64, step FlowStep, value ir.Value, invokeErr error) {
	outcome := "ok"
	if invokeErr != nil {
		outcome = "error"
	}
	sr := StepResult{Step: stepNum, Generic: step.Invoke, Outcome: outcome, Pass: true}
	fail := func(format string, args ...any) {
		sr.Pass = false
		result.AddError(fmt.Sprintf("flow[%d] %s: ", stepNum-1, step.Invoke) + fmt.Sprintf(format, args...))
	}

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}
	want := expect.Outcome
	if want == "" {
		want = "ok"
	}

	if outcome != want {
		if invokeErr != nil {
			fail("outcome = error (%v), want ok", invokeErr)
		} else {
			fail("outcome = ok, want error")
		}
		result.Steps = append(result.Steps, sr)
		return
	}

	if outcome == "error" && expect.Failure != "" {
		if code := dispatch.FailureCode(invokeErr); code != expect.Failure {
			fail("failure code = %q, want %q", code, expect.Failure)
		}
	}

	if outcome == "ok" && expect.Result != nil {
		wantValue, err := ir.FromGo(expect.Result)
		if err != nil {
			fail("expect.result: %v", err)
		} else if !canonicalEqual(value, wantValue) {
			fail("result = %s, want %s", canonicalString(value), canonicalString(wantValue))
		}
	}

	result.Steps = append(result.Steps, sr)
}

// compileDefs compiles each CUE definitions file and concatenates the specs.
func (h *Harness) compileDefs(paths []string) ([]*ir.GenericSpec, error) {
	cuectx := cuecontext.New()
	var specs []*ir.GenericSpec
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read definitions: %w", err)
		}
		v := cuectx.CompileString(string(data), cue.Filename(path))
		compiled, err := compiler.CompileDefinitions(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		specs = append(specs, compiled...)
	}
	return specs, nil
}

// contextProviders converts fixed scenario context values into providers.
func contextProviders(contexts map[string]any) (map[string]func() ir.Value, error) {
	if len(contexts) == 0 {
		return nil, nil
	}
	providers := make(map[string]func() ir.Value, len(contexts))
	for name, raw := range contexts {
		value, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", name, err)
		}
		providers[name] = func() ir.Value { return value }
	}
	return providers, nil
}

// flowArgs converts YAML-decoded argument lists to ir values.
func flowArgs(raw []any) ([]ir.Value, error) {
	args := make([]ir.Value, len(raw))
	for i, r := range raw {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

// canonicalEqual compares two values by canonical JSON bytes.
func canonicalEqual(a, b ir.Value) bool {
	ab, aerr := ir.MarshalCanonical(a)
	bb, berr := ir.MarshalCanonical(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}

func canonicalString(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
