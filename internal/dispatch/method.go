package dispatch

import (
	"fmt"

	"github.com/roach88/multimethod/internal/ir"
)

// Callable is a runnable produced by dispatch: the compiled entry point of
// a generic function, a dispatcher stage, or a combined method.
type Callable func(args []ir.Value) (ir.Value, error)

// Body is a method implementation normalized to one internal shape.
// Construct with Plain, NextFirst, or Curried - the constructor records the
// declared calling convention for introspection.
type Body struct {
	convention string
	invoke     func(next Next, args []ir.Value) (ir.Value, error)
}

// Plain wraps a body that never sees the continuation. Methods with plain
// bodies cannot call the next method.
func Plain(fn func(args []ir.Value) (ir.Value, error)) Body {
	return Body{
		convention: ir.ConventionPlain,
		invoke: func(_ Next, args []ir.Value) (ir.Value, error) {
			return fn(args)
		},
	}
}

// NextFirst wraps a body that receives the continuation as its leading
// parameter.
func NextFirst(fn func(next Next, args []ir.Value) (ir.Value, error)) Body {
	return Body{
		convention: ir.ConventionNextFirst,
		invoke:     fn,
	}
}

// Curried wraps a body that is handed the continuation once and returns
// the callable for the arguments.
func Curried(fn func(next Next) func(args []ir.Value) (ir.Value, error)) Body {
	return Body{
		convention: ir.ConventionCurried,
		invoke: func(next Next, args []ir.Value) (ir.Value, error) {
			return fn(next)(args)
		},
	}
}

// Convention returns the declared calling convention of the body.
func (b Body) Convention() string {
	return b.convention
}

// Method is one registered implementation of a generic function.
//
// Identity for replacement and removal is ID: the canonical hash of
// (specializers, qualifiers). Registering a method with an already-present
// ID replaces the old entry in place, preserving list position.
type Method struct {
	// ID is the canonical replacement identity (ir.MethodID).
	ID string

	// Bindings are the declared per-key specializers, in declaration order.
	Bindings []ir.BindingSpec

	// Qualifiers tag the method's role in combination. After stripping an
	// optional ("tag", name) pair the remainder must be empty (primary) or
	// exactly one of before/after/around.
	Qualifiers []string

	// Body is the normalized implementation.
	Body Body

	// seq is the registration order, used as the stable tie-break when two
	// applicable methods share a specificity rank.
	seq int
}

// specAt returns the specializer the method declared at the given dispatch
// key, defaulting to catch-all if the method did not constrain the key.
func (m *Method) specAt(key DispatchKey) ir.SpecializerSpec {
	ks := key.String()
	for _, b := range m.Bindings {
		if b.KeyString() == ks {
			return b.Spec
		}
	}
	return ir.SpecializerSpec{Kind: ir.SpecAny}
}

// role classifies the method's qualifiers for the standard combination,
// stripping the extra-tag pair first. Returns one of "", "before", "after",
// "around", or an error for unsupported combinations.
func (m *Method) role() (string, error) {
	quals := m.Qualifiers
	// Strip a leading ("tag", name) pair. It only distinguishes multiple
	// registrations with otherwise-identical specializers.
	if len(quals) >= 2 && quals[0] == ir.QualifierTag {
		quals = quals[2:]
	}
	switch {
	case len(quals) == 0:
		return ir.QualifierPrimary, nil
	case len(quals) == 1 && (quals[0] == ir.QualifierBefore ||
		quals[0] == ir.QualifierAfter || quals[0] == ir.QualifierAround):
		return quals[0], nil
	default:
		return "", fmt.Errorf("unsupported qualifier combination %v", m.Qualifiers)
	}
}

// DisplayArgs renders a human-displayable argument list for introspection:
// one entry per dispatch key the method constrains, e.g.
// ["0:(eql 5)", "1:(type int)", "ctx:mode:(derived strict)"].
func (m *Method) DisplayArgs() []string {
	out := make([]string, len(m.Bindings))
	for i, b := range m.Bindings {
		out[i] = b.KeyString() + ":" + b.Spec.Display()
	}
	return out
}
