package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

// Behaviors maps the body names used in definition files to executable
// method bodies. The definition surface never carries code; it names
// behaviors the host program registered here.
type Behaviors map[string]dispatch.Body

// Register wires a validated definition set into an engine: defines each
// generic, registers its methods against the behavior table, declares
// precedence, and binds context providers.
//
// Definitions are validated first; any validation error aborts before the
// engine is touched. Lint warnings (dispatch-key mismatches) are logged
// through the engine's logger and do not block.
func Register(e *dispatch.Engine, specs []*ir.GenericSpec, behaviors Behaviors, contexts map[string]func() ir.Value) error {
	if errs := ValidateAll(specs); len(errs) > 0 {
		return fmt.Errorf("invalid definitions: %w", errs[0])
	}

	for _, spec := range specs {
		for _, w := range Lint(spec) {
			e.Logger().Warn("definition lint",
				"generic", spec.Name, "field", w.Field, "code", w.Code, "detail", w.Message)
		}
		for _, ctx := range spec.Contexts {
			provider, ok := contexts[ctx]
			if !ok {
				return fmt.Errorf("generic %q declares context %q but no provider was supplied", spec.Name, ctx)
			}
			e.RegisterContext(ctx, provider)
		}
	}

	for _, spec := range specs {
		g, err := e.DefineGeneric(spec.Name)
		if err != nil {
			return fmt.Errorf("define %q: %w", spec.Name, err)
		}

		for i, m := range spec.Methods {
			body, ok := behaviors[m.Body]
			if !ok {
				return fmt.Errorf("generic %q methods[%d]: unknown behavior %q", spec.Name, i, m.Body)
			}
			if want := conventionOf(m); body.Convention() != want {
				return fmt.Errorf("generic %q methods[%d]: behavior %q has convention %q, definition declares %q",
					spec.Name, i, m.Body, body.Convention(), want)
			}
			if err := g.RegisterMethod(m.Bindings, m.Qualifiers, body); err != nil {
				return fmt.Errorf("generic %q methods[%d]: %w", spec.Name, i, err)
			}
		}

		if len(spec.Precedence) > 0 {
			keys, err := parseKeys(spec.Precedence)
			if err != nil {
				return fmt.Errorf("generic %q precedence: %w", spec.Name, err)
			}
			if err := g.DeclarePrecedence(keys...); err != nil {
				return fmt.Errorf("generic %q precedence: %w", spec.Name, err)
			}
		}
	}
	return nil
}

func conventionOf(m ir.MethodSpec) string {
	if m.Convention == "" {
		return ir.ConventionPlain
	}
	return m.Convention
}

// parseKeys converts precedence key strings ("0", "1", "ctx:mode") into
// dispatch keys.
func parseKeys(keys []string) ([]dispatch.DispatchKey, error) {
	out := make([]dispatch.DispatchKey, len(keys))
	for i, k := range keys {
		if name, ok := strings.CutPrefix(k, "ctx:"); ok {
			if name == "" {
				return nil, fmt.Errorf("empty context key %q", k)
			}
			out[i] = dispatch.ContextKey(name)
			continue
		}
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid dispatch key %q", k)
		}
		out[i] = dispatch.ArgKey(n)
	}
	return out, nil
}
