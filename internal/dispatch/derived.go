package dispatch

import "github.com/roach88/multimethod/internal/ir"

// Derived-symbol generalizer: a feature-module extension layered on the
// registry through the same contract the built-ins use.
//
// Symbols are plain strings arranged in a user-declared derivation tree
// (DeriveSymbol). A method specializing on (derived electric-guitar)
// applies to "electric-guitar" and everything derived from it, more
// specifically than any type-level match. Priority 90 slots between eql
// (100) and head (80): an exact value beats a derivation, a derivation
// beats a shape.
const (
	derivedName     = "derived"
	derivedPriority = 90

	// derivedRoot anchors the derivation tree. It is not a real symbol;
	// listers stop before it.
	derivedRoot = "%derived-root"
)

// DeriveSymbol declares child as derived from parent. An empty parent
// derives directly from the tree root. Parents must be declared first.
func (e *Engine) DeriveSymbol(child, parent string) error {
	if parent == "" {
		parent = derivedRoot
	}
	return e.derivedTree.Register(child, parent)
}

// registerDerived installs the derived-symbol generalizer.
// Called from New after the built-ins.
func (e *Engine) registerDerived() {
	g := &Generalizer{
		Name:     derivedName,
		Priority: derivedPriority,
		Extract: func(e *Engine, v ir.Value) Tag {
			s, ok := v.(ir.String)
			if !ok {
				return Tag{}
			}
			sym := string(s)
			if !e.derivedTree.Known(sym) {
				return Tag{}
			}
			// Only discriminate when some declared specializer could care:
			// a symbol none of whose ancestors is specialized on extracts
			// the sentinel, like any other unconstrained string.
			if !e.derivedReachable(sym) {
				return Tag{}
			}
			return Tag{Gen: derivedName, Key: sym}
		},
		Specializers: func(e *Engine, tag Tag) []ir.SpecializerSpec {
			var specs []ir.SpecializerSpec
			for _, sym := range e.derivedTree.Chain(tag.Key) {
				if sym == derivedRoot {
					break
				}
				specs = append(specs, ir.SpecializerSpec{Kind: ir.SpecDerived, Name: sym})
			}
			return append(specs, e.typeChainSpecs("string")...)
		},
		Handles: func(spec ir.SpecializerSpec) bool {
			return spec.Kind == ir.SpecDerived
		},
	}
	if err := e.RegisterGeneralizer(g); err != nil {
		panic(err)
	}
}

// derivedReachable reports whether sym or any of its ancestors appears in
// a registered derived specializer.
func (e *Engine) derivedReachable(sym string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, anc := range e.derivedTree.Chain(sym) {
		if e.derivedUsed[anc] {
			return true
		}
	}
	return false
}
