package dispatch

import "github.com/roach88/multimethod/internal/ir"

// Tagged-wrapper generalizer: the second feature-module extension.
//
// A Tagged value wraps a payload under a named tag; a method specializing
// on (wrapper celsius) applies to any Tagged{"celsius", ...} regardless of
// payload. Priority 51 sits just above the type level: matching the tag is
// more specific than matching "tagged" as a kind, but any shaped or
// derived match outranks it.
const (
	wrapperName     = "wrapper"
	wrapperPriority = 51
)

// registerWrapper installs the tagged-wrapper generalizer.
// Called from New after the built-ins.
func (e *Engine) registerWrapper() {
	g := &Generalizer{
		Name:     wrapperName,
		Priority: wrapperPriority,
		Extract: func(e *Engine, v ir.Value) Tag {
			tv, ok := v.(ir.Tagged)
			if !ok {
				return Tag{}
			}
			// Undeclared tags extract the sentinel (cache-growth invariant).
			if !e.wrapperUsed(tv.Tag) {
				return Tag{}
			}
			return Tag{Gen: wrapperName, Key: tv.Tag}
		},
		Specializers: func(e *Engine, tag Tag) []ir.SpecializerSpec {
			specs := []ir.SpecializerSpec{{Kind: ir.SpecWrapper, Name: tag.Key}}
			return append(specs, e.typeChainSpecs("tagged")...)
		},
		Handles: func(spec ir.SpecializerSpec) bool {
			return spec.Kind == ir.SpecWrapper
		},
	}
	if err := e.RegisterGeneralizer(g); err != nil {
		panic(err)
	}
}
