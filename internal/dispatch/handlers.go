package dispatch

import (
	"fmt"

	"github.com/roach88/multimethod/internal/ir"
)

// The engine hosts five of its own extension points as generic functions:
//
//	%generalizers-of      specializer shape -> generalizer names
//	%combination          (generic name, method ids) -> strategy name
//	%no-applicable-method failure handler, may recover with a value
//	%no-primary-method    failure handler, may recover with a value
//	%no-next-method       failure handler, may recover with a value
//
// Each carries a hand-written default method so the engine behaves
// identically before and after any extension. The '%' prefix marks them
// internal: their own failures stay raw, which is the recursion base.

// bootstrapInternals defines the internal generics and their default
// methods. Runs inside New before selfHosted flips on, so every rebuild
// here combines standard and never consults the internals being built.
func (e *Engine) bootstrapInternals() {
	e.generalizersOf = e.mustDefine("%generalizers-of")
	e.mustRegisterDefault(e.generalizersOf, func(args []ir.Value) (ir.Value, error) {
		spec, err := specFromValue(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		gens := e.builtinGeneralizersFor(spec)
		names := make(ir.Array, len(gens))
		for i, g := range gens {
			names[i] = ir.String(g.Name)
		}
		return names, nil
	})

	e.combination = e.mustDefine("%combination")
	e.mustRegisterDefault(e.combination, func(args []ir.Value) (ir.Value, error) {
		return ir.String(StandardCombination), nil
	})

	e.noApplicableGF = e.mustDefine("%no-applicable-method")
	e.mustRegisterDefault(e.noApplicableGF, func(args []ir.Value) (ir.Value, error) {
		return nil, rawNoApplicable(stringArg(args, 0), arrayArg(args, 1))
	})

	e.noPrimaryGF = e.mustDefine("%no-primary-method")
	e.mustRegisterDefault(e.noPrimaryGF, func(args []ir.Value) (ir.Value, error) {
		return nil, rawNoPrimary(stringArg(args, 0), arrayArg(args, 1))
	})

	e.noNextGF = e.mustDefine("%no-next-method")
	e.mustRegisterDefault(e.noNextGF, func(args []ir.Value) (ir.Value, error) {
		return nil, rawNoNext(stringArg(args, 0), stringArg(args, 1), arrayArg(args, 2))
	})
}

// mustDefine defines an internal generic. The namespace is empty during
// bootstrap, so a collision is a programming error.
func (e *Engine) mustDefine(name string) *Generic {
	g, err := e.DefineGeneric(name)
	if err != nil {
		panic(fmt.Sprintf("dispatch: bootstrap of %s: %v", name, err))
	}
	return g
}

// mustRegisterDefault installs the catch-all default method of an internal
// generic. Extensions override it by registering more specific methods.
func (e *Engine) mustRegisterDefault(g *Generic, fn func(args []ir.Value) (ir.Value, error)) {
	if err := g.RegisterMethod(nil, nil, Plain(fn)); err != nil {
		panic(fmt.Sprintf("dispatch: bootstrap of %s: %v", g.name, err))
	}
}

// specFromValue parses the shaped argument of %generalizers-of back into a
// specializer: an array headed by the kind (the inverse of specValue).
// Methods of %generalizers-of head-specialize on that kind.
func specFromValue(v ir.Value) (ir.SpecializerSpec, error) {
	shaped, ok := v.(ir.Array)
	if !ok || len(shaped) == 0 {
		return ir.SpecializerSpec{}, fmt.Errorf("specializer shape must be a non-empty array, got %s", ir.KindOf(v))
	}
	kind, ok := shaped[0].(ir.String)
	if !ok {
		return ir.SpecializerSpec{}, fmt.Errorf("specializer shape must be headed by a kind string")
	}

	switch string(kind) {
	case ir.SpecAny:
		return ir.SpecializerSpec{Kind: ir.SpecAny}, nil
	case ir.SpecEql:
		if len(shaped) < 2 {
			return ir.SpecializerSpec{}, fmt.Errorf("eql shape missing its value")
		}
		return ir.SpecializerSpec{Kind: ir.SpecEql, Value: shaped[1]}, nil
	default:
		if len(shaped) < 2 {
			return ir.SpecializerSpec{}, fmt.Errorf("%s shape missing its name", kind)
		}
		name, ok := shaped[1].(ir.String)
		if !ok {
			return ir.SpecializerSpec{}, fmt.Errorf("%s shape name must be a string", kind)
		}
		return ir.SpecializerSpec{Kind: string(kind), Name: string(name)}, nil
	}
}

// argAt returns args[i], Null when the call is short.
func argAt(args []ir.Value, i int) ir.Value {
	if i >= len(args) {
		return ir.Null{}
	}
	return args[i]
}

// stringArg returns args[i] as a string, "" when absent or mistyped.
// Handler defaults tolerate malformed calls: they are constructing an
// error report, not validating one.
func stringArg(args []ir.Value, i int) string {
	if s, ok := argAt(args, i).(ir.String); ok {
		return string(s)
	}
	return ""
}

// arrayArg returns args[i] as an array, nil when absent or mistyped.
func arrayArg(args []ir.Value, i int) ir.Array {
	if a, ok := argAt(args, i).(ir.Array); ok {
		return a
	}
	return nil
}
