package dispatch

import (
	"slices"
	"strings"
	"sync"

	"github.com/roach88/multimethod/internal/ir"
)

// Dispatcher is the compiled factory for one dispatch shape: a (dispatch
// key, generalizer set) pair. Many generic functions share identical
// shapes, so dispatchers are memoized globally; instantiating one binds it
// to a specific generic, the remaining plan entries, and the candidate
// methods at that stage, with a fresh private discriminant cache.
//
// A Dispatcher is a pure function of its pair: it reads no method table
// directly, so sharing across generics is safe - candidates arrive fresh
// from each generic's live table on every entry-point rebuild.
type Dispatcher struct {
	key  DispatchKey
	gens []*Generalizer
}

// getDispatcher returns the memoized dispatcher for the pair, creating it
// on first use. The generalizer slice is copied into the dispatcher so
// later mutation of the caller's plan cannot corrupt the memo key's
// meaning.
func (e *Engine) getDispatcher(key DispatchKey, gens []*Generalizer) *Dispatcher {
	var sb strings.Builder
	sb.WriteString(key.String())
	for _, g := range gens {
		sb.WriteByte(0)
		sb.WriteString(g.Name)
	}
	memoKey := sb.String()

	if v, ok := e.dispatchers.Load(memoKey); ok {
		return v.(*Dispatcher)
	}
	d := &Dispatcher{key: key, gens: slices.Clone(gens)}
	actual, _ := e.dispatchers.LoadOrStore(memoKey, d)
	return actual.(*Dispatcher)
}

// Instantiate binds the dispatcher to one stage of one generic's entry
// point and returns the runtime callable:
//
//  1. Extract the discriminant from the designated argument or context
//     expression (highest-priority non-trivial tag wins).
//  2. Look it up in the private discriminant cache; on a miss, filter the
//     candidates, recurse into the next dispatch position or combine, and
//     memoize the resulting callable under the discriminant.
//  3. Invoke the resolved callable with the original arguments.
//
// The all-trivial discriminant resolves like any other: it selects the
// methods happy to match anything, which is the common case of
// unconstrained dispatch, not an error.
func (d *Dispatcher) Instantiate(g *Generic, rest []planEntry, candidates []*Method) Callable {
	e := g.engine
	entry := planEntry{key: d.key, gens: d.gens}
	var cache sync.Map // Tag -> Callable

	return func(args []ir.Value) (ir.Value, error) {
		tag := entry.extractTag(e, args)

		if v, ok := cache.Load(tag); ok {
			e.stats.dispatcherHits.Add(1)
			return v.(Callable)(args)
		}
		e.stats.dispatcherMisses.Add(1)

		next := e.resolveMiss(g, entry, rest, candidates, tag)
		actual, _ := cache.LoadOrStore(tag, next)
		return actual.(Callable)(args)
	}
}

// resolveMiss handles a discriminant-cache miss: filter the surviving
// candidates by what the discriminant satisfies, then either hand the
// ordered subset to the combination engine (no dispatch keys left, or no
// methods left to discriminate between) or chain into the next position.
func (e *Engine) resolveMiss(g *Generic, entry planEntry, rest []planEntry, candidates []*Method, tag Tag) Callable {
	filtered := filterByTag(e, entry, candidates, tag)

	if len(rest) == 0 || len(filtered) == 0 {
		return e.resolveCombined(g, filtered)
	}
	d := e.getDispatcher(rest[0].key, rest[0].gens)
	return d.Instantiate(g, rest[1:], filtered)
}
