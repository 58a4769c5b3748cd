package dispatch

import (
	"sort"

	"github.com/roach88/multimethod/internal/ir"
)

// planEntry is one dispatch position: the key to inspect and the
// generalizers relevant to it, highest priority first.
type planEntry struct {
	key  DispatchKey
	gens []*Generalizer
}

// buildPlanLocked computes the dispatch plan from the live method table:
// for every dispatch key some method constrains, the priority-sorted union
// of the generalizers returned for each specializer declared there.
//
// Entries whose only generalizer is the catch-all are pruned - there is no
// point inspecting an argument every method matches unconditionally.
//
// Key order: argument positions ascending, then context keys in first-seen
// order, then reordered so precedence-declared keys come first.
// Must be called with g.mu held.
func (g *Generic) buildPlanLocked() []planEntry {
	e := g.engine

	type keyGens struct {
		key  DispatchKey
		gens map[string]*Generalizer
	}
	byKey := make(map[string]*keyGens)
	var order []string

	for _, m := range g.methods {
		for _, b := range m.Bindings {
			ks := b.KeyString()
			kg, ok := byKey[ks]
			if !ok {
				kg = &keyGens{key: keyFromBinding(b), gens: make(map[string]*Generalizer)}
				byKey[ks] = kg
				order = append(order, ks)
			}
			for _, gen := range e.GeneralizersFor(b.Spec) {
				kg.gens[gen.Name] = gen
			}
		}
	}

	// Argument positions ascending, context keys after in first-seen order.
	sort.SliceStable(order, func(i, j int) bool {
		a, b := byKey[order[i]].key, byKey[order[j]].key
		if a.Arg >= 0 && b.Arg >= 0 {
			return a.Arg < b.Arg
		}
		// Contexts keep first-seen order among themselves, after args.
		return a.Arg >= 0 && b.Arg < 0
	})

	order = applyPrecedence(order, g.precedence)

	var plan []planEntry
	for _, ks := range order {
		kg := byKey[ks]
		gens := make([]*Generalizer, 0, len(kg.gens))
		for _, gen := range kg.gens {
			gens = append(gens, gen)
		}
		sort.SliceStable(gens, func(i, j int) bool {
			if gens[i].Priority != gens[j].Priority {
				return gens[i].Priority > gens[j].Priority
			}
			return gens[i].seq < gens[j].seq
		})

		if len(gens) == 0 || (len(gens) == 1 && gens[0].Name == catchAllName) {
			continue // unconstrained position, skip at call time
		}
		plan = append(plan, planEntry{key: kg.key, gens: gens})
	}
	return plan
}

// applyPrecedence reorders keys so precedence-declared ones come first in
// declaration-stack order; the rest keep their natural order. Reorders,
// never filters: a precedence key with no live plan entry is ignored here
// (it was validated against the method table when declared).
func applyPrecedence(order, precedence []string) []string {
	if len(precedence) == 0 {
		return order
	}
	present := make(map[string]bool, len(order))
	for _, ks := range order {
		present[ks] = true
	}

	reordered := make([]string, 0, len(order))
	taken := make(map[string]bool)
	for _, ks := range precedence {
		if present[ks] && !taken[ks] {
			reordered = append(reordered, ks)
			taken[ks] = true
		}
	}
	for _, ks := range order {
		if !taken[ks] {
			reordered = append(reordered, ks)
		}
	}
	return reordered
}

// extractTag computes the discriminant for this plan entry from the live
// call: every generalizer is consulted highest priority first and the
// first non-trivial tag wins. Arguments beyond the call's arity and
// unbound contexts read as Null.
func (p planEntry) extractTag(e *Engine, args []ir.Value) Tag {
	var v ir.Value
	if p.key.Arg >= 0 {
		if p.key.Arg < len(args) {
			v = args[p.key.Arg]
		} else {
			v = ir.Null{}
		}
	} else {
		v = e.contextValue(p.key.Context)
	}

	for _, gen := range p.gens {
		if tag := gen.Extract(e, v); !tag.Trivial() {
			return tag
		}
	}
	return Tag{}
}

// filterByTag keeps the candidate methods whose specializer at the entry's
// key is satisfied by the discriminant, ordered most specific first.
//
// The owning generalizer lists the specializers the tag satisfies; a
// method's rank is its specializer's position in that list (lower is more
// specific), with registration order as the stable tie-break. The trivial
// tag satisfies only the catch-all - the common case of unconstrained
// dispatch, not an error path.
func filterByTag(e *Engine, p planEntry, candidates []*Method, tag Tag) []*Method {
	var satisfied []ir.SpecializerSpec
	if tag.Trivial() {
		satisfied = []ir.SpecializerSpec{{Kind: ir.SpecAny}}
	} else {
		owner := e.generalizerByName(tag.Gen)
		if owner == nil {
			satisfied = nil
		} else {
			satisfied = owner.Specializers(e, tag)
		}
		satisfied = appendCatchAll(satisfied)
	}

	rank := make(map[string]int, len(satisfied))
	for i, s := range satisfied {
		k := specKey(s)
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}

	type ranked struct {
		m *Method
		r int
	}
	var kept []ranked
	for _, m := range candidates {
		r, ok := rank[specKey(m.specAt(p.key))]
		if !ok {
			continue
		}
		kept = append(kept, ranked{m: m, r: r})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].r < kept[j].r
	})

	out := make([]*Method, len(kept))
	for i, k := range kept {
		out[i] = k.m
	}
	return out
}
