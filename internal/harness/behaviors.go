package harness

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/multimethod/internal/compiler"
	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

// journal collects execution-order labels from journal: and around:
// behaviors during one scenario run.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(label string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, label)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// ResolveBehaviors resolves every distinct body name referenced by the
// specs against the built-in library plus extra. Journal-backed behaviors
// resolve against a throwaway journal; callers who need the journal run
// scenarios through a Harness instead.
func ResolveBehaviors(specs []*ir.GenericSpec, extra compiler.Behaviors) (compiler.Behaviors, error) {
	return behaviorsFor(specs, &journal{}, extra)
}

// behaviorsFor resolves every distinct body name referenced by the specs.
// Caller-registered behaviors take priority over the built-in library;
// prefixed forms (const:, journal:, around:, fail:) are synthesized.
func behaviorsFor(specs []*ir.GenericSpec, j *journal, extra compiler.Behaviors) (compiler.Behaviors, error) {
	resolved := compiler.Behaviors{}
	for _, spec := range specs {
		for _, m := range spec.Methods {
			if _, ok := resolved[m.Body]; ok {
				continue
			}
			body, err := resolveBehavior(m.Body, j, extra)
			if err != nil {
				return nil, fmt.Errorf("generic %q: %w", spec.Name, err)
			}
			resolved[m.Body] = body
		}
	}
	return resolved, nil
}

func resolveBehavior(name string, j *journal, extra compiler.Behaviors) (dispatch.Body, error) {
	if body, ok := extra[name]; ok {
		return body, nil
	}

	switch name {
	case "echo":
		return dispatch.Plain(func(args []ir.Value) (ir.Value, error) {
			return ir.Array(args), nil
		}), nil
	case "first":
		return dispatch.Plain(func(args []ir.Value) (ir.Value, error) {
			if len(args) == 0 {
				return ir.Null{}, nil
			}
			return args[0], nil
		}), nil
	case "sum":
		return dispatch.Plain(func(args []ir.Value) (ir.Value, error) {
			var total ir.Int
			for i, a := range args {
				n, ok := a.(ir.Int)
				if !ok {
					return nil, fmt.Errorf("sum: argument %d is not an int", i)
				}
				total += n
			}
			return total, nil
		}), nil
	case "concat":
		return dispatch.Plain(func(args []ir.Value) (ir.Value, error) {
			var b strings.Builder
			for i, a := range args {
				s, ok := a.(ir.String)
				if !ok {
					return nil, fmt.Errorf("concat: argument %d is not a string", i)
				}
				b.WriteString(string(s))
			}
			return ir.String(b.String()), nil
		}), nil
	}

	if rest, ok := strings.CutPrefix(name, "const:"); ok {
		v, err := ir.UnmarshalValue([]byte(rest))
		if err != nil {
			return dispatch.Body{}, fmt.Errorf("behavior %q: %w", name, err)
		}
		return dispatch.Plain(func(_ []ir.Value) (ir.Value, error) {
			return v, nil
		}), nil
	}

	if label, ok := strings.CutPrefix(name, "journal:"); ok {
		return dispatch.Plain(func(_ []ir.Value) (ir.Value, error) {
			j.add(label)
			return ir.String(label), nil
		}), nil
	}

	if label, ok := strings.CutPrefix(name, "around:"); ok {
		return dispatch.NextFirst(func(next dispatch.Next, _ []ir.Value) (ir.Value, error) {
			j.add(label + "-in")
			result, err := next.Call()
			if err != nil {
				return nil, err
			}
			j.add(label + "-out")
			return result, nil
		}), nil
	}

	if msg, ok := strings.CutPrefix(name, "fail:"); ok {
		return dispatch.Plain(func(_ []ir.Value) (ir.Value, error) {
			return nil, fmt.Errorf("%s", msg)
		}), nil
	}

	return dispatch.Body{}, fmt.Errorf("unknown behavior %q", name)
}
