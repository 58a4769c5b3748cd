package dispatch

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/multimethod/internal/ir"
)

// DispatchKey identifies what a dispatch position inspects: a positional
// argument (Arg >= 0) or a named context expression (Arg == -1).
type DispatchKey struct {
	Arg     int
	Context string
}

// ArgKey returns the dispatch key for argument position i.
func ArgKey(i int) DispatchKey {
	return DispatchKey{Arg: i}
}

// ContextKey returns the dispatch key for a named context expression.
func ContextKey(name string) DispatchKey {
	return DispatchKey{Arg: -1, Context: name}
}

// keyFromBinding converts a declared binding to its dispatch key.
func keyFromBinding(b ir.BindingSpec) DispatchKey {
	if b.Arg < 0 {
		return ContextKey(b.Context)
	}
	return ArgKey(b.Arg)
}

// String renders the key the same way ir.BindingSpec.KeyString does, so
// the two representations index the same tables.
func (k DispatchKey) String() string {
	if k.Arg < 0 {
		return "ctx:" + k.Context
	}
	return strconv.Itoa(k.Arg)
}

// Tag is the cheap discriminant a generalizer extracts from an argument.
// It is the dispatch cache key: two arguments with equal tags resolve to
// the same cache line.
//
// The zero Tag is the shared "nothing to say" sentinel. Invariant: an
// argument for which no enabled specializer applies extracts the zero Tag
// from every generalizer at the call site, so unconstrained arguments all
// share one cache line instead of growing the cache without bound.
type Tag struct {
	// Gen names the generalizer that produced the tag.
	Gen string

	// Key is the discriminant payload, canonical within the generalizer.
	Key string
}

// Trivial reports whether the tag is the sentinel.
func (t Tag) Trivial() bool {
	return t == Tag{}
}

// Generalizer pairs a priority with a tag-extraction rule and a
// specializer-listing rule. Immutable once registered.
//
// Priority is a total order deciding, for one dispatch position, in which
// order competing generalizers are tried; ties break by registration order.
//
// Two invariants keep the shared-cache design correct:
//  1. Arguments no enabled specializer applies to must extract the zero
//     Tag from every generalizer in play (see Tag).
//  2. If G1 has higher priority than G2 and G1 extracts equal tags for two
//     arguments, G2 must also extract equal tags for them. A tag computed
//     by only the highest non-trivial generalizer can then stand in for
//     the whole set.
type Generalizer struct {
	// Name identifies the generalizer; also recorded in the tags it makes.
	Name string

	// Priority orders competing generalizers, highest first.
	Priority int

	// Extract computes the discriminant for a live argument. Returning the
	// zero Tag means this generalizer has nothing to say about the value.
	Extract func(e *Engine, v ir.Value) Tag

	// Specializers lists, most specific first, the specializers a
	// discriminant satisfies. The engine appends the catch-all if absent.
	Specializers func(e *Engine, tag Tag) []ir.SpecializerSpec

	// Handles reports whether this generalizer can discriminate on a
	// declared specializer. Drives the registry's generalizer lookup.
	Handles func(spec ir.SpecializerSpec) bool

	seq int // registration order, the priority tie-break
}

// RegisterGeneralizer adds a generalizer to the registry. Names are
// unique; re-registration is rejected rather than silently replaced since
// generalizers are immutable by design.
func (e *Engine) RegisterGeneralizer(g *Generalizer) error {
	if g.Name == "" || g.Extract == nil || g.Specializers == nil || g.Handles == nil {
		return fmt.Errorf("generalizer requires name, extract, specializers, and handles")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.genByName[g.Name]; ok {
		return fmt.Errorf("generalizer %q already registered", g.Name)
	}
	g.seq = len(e.generalizers)
	e.genByName[g.Name] = g
	e.generalizers = append(e.generalizers, g)

	// Keep the slice priority-sorted, registration order as tie-break.
	slices.SortStableFunc(e.generalizers, func(a, b *Generalizer) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return a.seq - b.seq
	})
	return nil
}

// generalizerByName resolves a registered generalizer, or nil.
func (e *Engine) generalizerByName(name string) *Generalizer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.genByName[name]
}

// generalizersByPriority returns a snapshot of the registry, highest
// priority first.
func (e *Engine) generalizersByPriority() []*Generalizer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.generalizers)
}

// GeneralizersFor returns every generalizer capable of discriminating on a
// declared specializer, highest priority first.
//
// The lookup is itself dispatched through the %generalizers-of generic
// function, so feature modules extend it by registering a method for their
// specializer kind (the kind is the head of the shaped argument). The
// hand-written registry scan serves as the bootstrap default and as the
// recovery path if the self-hosted lookup cannot answer.
func (e *Engine) GeneralizersFor(spec ir.SpecializerSpec) []*Generalizer {
	if !e.selfHosted.Load() {
		return e.builtinGeneralizersFor(spec)
	}

	result, err := e.invokeGeneric(e.generalizersOf, []ir.Value{specValue(spec)})
	if err != nil {
		return e.builtinGeneralizersFor(spec)
	}
	names, ok := result.(ir.Array)
	if !ok {
		return e.builtinGeneralizersFor(spec)
	}

	gens := make([]*Generalizer, 0, len(names))
	for _, n := range names {
		name, ok := n.(ir.String)
		if !ok {
			return e.builtinGeneralizersFor(spec)
		}
		if g := e.generalizerByName(string(name)); g != nil {
			gens = append(gens, g)
		}
	}
	if len(gens) == 0 {
		return e.builtinGeneralizersFor(spec)
	}
	return gens
}

// builtinGeneralizersFor is the hand-written bootstrap lookup: scan the
// registry for generalizers that handle the specializer kind.
func (e *Engine) builtinGeneralizersFor(spec ir.SpecializerSpec) []*Generalizer {
	var gens []*Generalizer
	for _, g := range e.generalizersByPriority() {
		if g.Handles(spec) {
			gens = append(gens, g)
		}
	}
	if len(gens) == 0 {
		// Unknown kinds degrade to unconstrained dispatch.
		if ca := e.generalizerByName(catchAllName); ca != nil {
			gens = append(gens, ca)
		}
	}
	return gens
}

// specValue renders a specializer as the shaped argument of the
// %generalizers-of generic: an array headed by the specializer kind.
func specValue(spec ir.SpecializerSpec) ir.Value {
	switch spec.Kind {
	case ir.SpecAny:
		return ir.Array{ir.String(ir.SpecAny)}
	case ir.SpecEql:
		return ir.Array{ir.String(ir.SpecEql), spec.Value}
	default:
		return ir.Array{ir.String(spec.Kind), ir.String(spec.Name)}
	}
}

// specializersForValue finds the most specific specializer list a value
// satisfies considering only generalizers strictly below the given
// priority. Higher-priority listers chain through this so their lists end
// with what the rest of the registry would have said (refinement
// invariant 2).
func (e *Engine) specializersForValue(v ir.Value, below int) []ir.SpecializerSpec {
	for _, g := range e.generalizersByPriority() {
		if g.Priority >= below {
			continue
		}
		if tag := g.Extract(e, v); !tag.Trivial() {
			return g.Specializers(e, tag)
		}
	}
	return []ir.SpecializerSpec{{Kind: ir.SpecAny}}
}

// specKey builds the identity string used to rank specializers during
// cache-miss filtering. Two structurally equal specializers share a key.
func specKey(s ir.SpecializerSpec) string {
	vk := ""
	if s.Value != nil {
		// Registration validates eql values; an unmarshalable value cannot
		// reach this point.
		vk, _ = ir.ValueKey(s.Value)
	}
	return s.Kind + "\x00" + s.Name + "\x00" + vk
}

// appendCatchAll ensures the catch-all terminates a satisfied-specializer
// list, so unconstrained methods always rank least specific instead of
// being filtered out.
func appendCatchAll(specs []ir.SpecializerSpec) []ir.SpecializerSpec {
	for _, s := range specs {
		if s.Kind == ir.SpecAny {
			return specs
		}
	}
	return append(specs, ir.SpecializerSpec{Kind: ir.SpecAny})
}
