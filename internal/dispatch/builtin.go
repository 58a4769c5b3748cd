package dispatch

import (
	"fmt"

	"github.com/roach88/multimethod/internal/ir"
)

// Built-in generalizer names and priorities. Priorities are spaced so
// feature modules can slot between them (derived at 90, wrapper at 51).
const (
	catchAllName     = "any"
	catchAllPriority = 0

	eqlName     = "eql"
	eqlPriority = 100

	headName     = "head"
	headPriority = 80

	typeOfName     = "typeof"
	typeOfPriority = 10
)

// registerBuiltins installs the core generalizers and the nominal kind
// tree. Called once from New, before the self-hosted lookup activates.
func (e *Engine) registerBuiltins() {
	// Kind tree: every value kind under the root, with an abstract
	// "number" layer so numeric specializers can be broader than "int".
	for _, reg := range []struct{ name, parent string }{
		{"number", "any"},
		{"int", "number"},
		{"string", "any"},
		{"bool", "any"},
		{"null", "any"},
		{"array", "any"},
		{"object", "any"},
		{"tagged", "any"},
	} {
		if err := e.typeTree.Register(reg.name, reg.parent); err != nil {
			panic(fmt.Sprintf("builtin type tree: %v", err))
		}
	}

	for _, g := range []*Generalizer{
		catchAllGeneralizer(),
		eqlGeneralizer(),
		headGeneralizer(),
		typeOfGeneralizer(),
	} {
		if err := e.RegisterGeneralizer(g); err != nil {
			panic(fmt.Sprintf("builtin generalizer: %v", err))
		}
	}
}

// catchAllGeneralizer matches everything and discriminates nothing. It is
// the registry's bootstrap entry: a dispatch position whose only
// generalizer is this one is pruned from the plan entirely.
func catchAllGeneralizer() *Generalizer {
	return &Generalizer{
		Name:     catchAllName,
		Priority: catchAllPriority,
		Extract: func(_ *Engine, _ ir.Value) Tag {
			return Tag{} // nothing to say, ever
		},
		Specializers: func(_ *Engine, _ Tag) []ir.SpecializerSpec {
			return []ir.SpecializerSpec{{Kind: ir.SpecAny}}
		},
		Handles: func(spec ir.SpecializerSpec) bool {
			return spec.Kind == ir.SpecAny
		},
	}
}

// eqlGeneralizer discriminates exact values. Extraction is non-trivial
// only for values some registered method actually eql-specializes on
// (the interning table), keeping the cache bounded by declarations.
func eqlGeneralizer() *Generalizer {
	return &Generalizer{
		Name:     eqlName,
		Priority: eqlPriority,
		Extract: func(e *Engine, v ir.Value) Tag {
			vk, err := ir.ValueKey(v)
			if err != nil {
				return Tag{}
			}
			if _, used := e.eqlValue(vk); !used {
				return Tag{}
			}
			return Tag{Gen: eqlName, Key: vk}
		},
		Specializers: func(e *Engine, tag Tag) []ir.SpecializerSpec {
			v, ok := e.eqlValue(tag.Key)
			if !ok {
				return nil
			}
			specs := []ir.SpecializerSpec{{Kind: ir.SpecEql, Value: v}}
			// Chain to what the rest of the registry would say about the
			// value, so an eql tag also satisfies type-level specializers.
			return append(specs, e.specializersForValue(v, eqlPriority)...)
		},
		Handles: func(spec ir.SpecializerSpec) bool {
			return spec.Kind == ir.SpecEql
		},
	}
}

// headGeneralizer discriminates shaped composites: arrays whose first
// element is a declared literal string.
func headGeneralizer() *Generalizer {
	return &Generalizer{
		Name:     headName,
		Priority: headPriority,
		Extract: func(e *Engine, v ir.Value) Tag {
			arr, ok := v.(ir.Array)
			if !ok {
				return Tag{}
			}
			lit := arr.Head()
			if lit == "" || !e.headUsed(lit) {
				return Tag{}
			}
			return Tag{Gen: headName, Key: lit}
		},
		Specializers: func(e *Engine, tag Tag) []ir.SpecializerSpec {
			specs := []ir.SpecializerSpec{{Kind: ir.SpecHead, Name: tag.Key}}
			return append(specs, e.typeChainSpecs("array")...)
		},
		Handles: func(spec ir.SpecializerSpec) bool {
			return spec.Kind == ir.SpecHead
		},
	}
}

// typeOfGeneralizer discriminates nominal kinds through the kind tree.
// Extraction always succeeds (the kind space is small and closed), so a
// type-dispatched position has at most one cache line per kind.
func typeOfGeneralizer() *Generalizer {
	return &Generalizer{
		Name:     typeOfName,
		Priority: typeOfPriority,
		Extract: func(_ *Engine, v ir.Value) Tag {
			kind := ir.KindOf(v)
			if kind == "" {
				return Tag{}
			}
			return Tag{Gen: typeOfName, Key: kind}
		},
		Specializers: func(e *Engine, tag Tag) []ir.SpecializerSpec {
			return e.typeChainSpecs(tag.Key)
		},
		Handles: func(spec ir.SpecializerSpec) bool {
			return spec.Kind == ir.SpecType
		},
	}
}

// typeChainSpecs renders the ancestry of a kind as type specializers,
// most specific first. The root renders as "(type any)", which is still
// narrower than the catch-all: it requires a value the kind tree knows.
func (e *Engine) typeChainSpecs(kind string) []ir.SpecializerSpec {
	chain := e.typeTree.Chain(kind)
	specs := make([]ir.SpecializerSpec, len(chain))
	for i, name := range chain {
		specs[i] = ir.SpecializerSpec{Kind: ir.SpecType, Name: name}
	}
	return specs
}
