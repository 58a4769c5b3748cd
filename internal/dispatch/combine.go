package dispatch

import (
	"sync"

	"github.com/petermattis/goid"

	"github.com/roach88/multimethod/internal/ir"
)

// StandardCombination is the name of the built-in qualifier-based
// combination: around wraps, before runs first, one primary chain, after
// runs last in reverse.
const StandardCombination = "standard"

// Combination folds an ordered applicable subset (most specific first)
// into a single callable. Strategies are registered by name and selected
// per generic through the %combination internal.
type Combination func(e *Engine, g *Generic, methods []*Method) Callable

// RegisterCombinationStrategy registers a named combination strategy.
// Selecting it for a generic is done by adding a method to %combination
// that returns the strategy's name.
func (e *Engine) RegisterCombinationStrategy(name string, c Combination) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[name] = c
}

// combinedEntry is one memoized combined callable, pinned to the
// generation of the generic that built it. A stale generation means the
// method table changed since; the entry is dead.
type combinedEntry struct {
	callable   Callable
	generic    string
	generation int64
}

// combinedMemo memoizes combined callables by the canonical subset key,
// globally across dispatch paths: two paths arriving at the same ordered
// method subset share one combined method.
type combinedMemo struct {
	mu      sync.Mutex
	entries map[string]*combinedEntry
}

func (m *combinedMemo) lookup(key string, generation int64) (Callable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || entry.generation != generation {
		return nil, false
	}
	return entry.callable, true
}

func (m *combinedMemo) store(key, generic string, generation int64, c Callable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &combinedEntry{callable: c, generic: generic, generation: generation}
}

// sweep drops every entry the named generic built under an older
// generation. Called on each rebuild so redefinition cannot serve stale
// combined methods, without touching other generics' entries.
func (m *combinedMemo) sweep(generic string, generation int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if entry.generic == generic && entry.generation < generation {
			delete(m.entries, key)
		}
	}
}

// combiningSet tracks subset keys currently being combined, scoped per
// goroutine: only re-entry on the SAME call chain is the cyclic-combination
// signal. Two goroutines racing the first build of one subset are
// independent builds, never a cycle; each completes with the selected
// strategy and the memo keeps whichever stores last.
type combiningSet struct {
	mu     sync.Mutex
	active map[combineFrame]bool
}

// combineFrame identifies one in-progress build: which goroutine is
// combining which subset.
type combineFrame struct {
	gid int64
	key string
}

func (s *combiningSet) enter(key string) bool {
	frame := combineFrame{gid: goid.Get(), key: key}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[frame] {
		return false
	}
	s.active[frame] = true
	return true
}

func (s *combiningSet) exit(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, combineFrame{gid: goid.Get(), key: key})
}

// resolveCombined returns the combined callable for an ordered applicable
// subset, building it at most once per (subset, generation).
//
// Combination may itself dispatch (strategy selection goes through
// %combination), so building can re-enter resolveCombined. A re-entry for
// the SAME subset key on the SAME goroutine is a cycle: the engine
// recovers by combining that inner occurrence with the standard strategy,
// unmemoized, and logging the event. The outer build then completes
// normally. A concurrent first build on another goroutine is not a cycle;
// it simply builds its own copy and the memo dedupes from then on.
func (e *Engine) resolveCombined(g *Generic, methods []*Method) Callable {
	ids := make([]string, len(methods))
	for i, m := range methods {
		ids[i] = m.ID
	}
	key := ir.MustSubsetKey(g.name, ids)
	generation := g.generation.Load()

	if c, ok := e.combined.lookup(key, generation); ok {
		e.stats.combineReuses.Add(1)
		return c
	}

	if !e.combining.enter(key) {
		e.stats.cycleFallbacks.Add(1)
		e.logger.Warn("cyclic method combination, falling back to standard",
			"generic", g.name, "subset", key)
		return standardCombine(e, g, methods)
	}
	defer e.combining.exit(key)

	strategy := e.selectCombination(g, ids)
	c := strategy(e, g, methods)
	e.stats.combineBuilds.Add(1)
	e.combined.store(key, g.name, generation, c)
	return c
}

// selectCombination picks the combination strategy for a generic by
// dispatching %combination on the generic's name and the ordered method
// IDs of the subset being combined, most specific first. Internal generics
// and the pre-bootstrap window always combine standard; so does any
// selection failure, with a warning.
func (e *Engine) selectCombination(g *Generic, ids []string) Combination {
	if isInternal(g.name) || !e.selfHosted.Load() {
		return standardCombine
	}

	subset := make(ir.Array, len(ids))
	for i, id := range ids {
		subset[i] = ir.String(id)
	}
	result, err := e.invokeGeneric(e.combination, []ir.Value{ir.String(g.name), subset})
	if err != nil {
		e.logger.Warn("combination selection failed, using standard",
			"generic", g.name, "error", err)
		return standardCombine
	}
	name, ok := result.(ir.String)
	if !ok {
		e.logger.Warn("combination selection returned a non-string, using standard",
			"generic", g.name)
		return standardCombine
	}

	e.mu.RLock()
	strategy := e.strategies[string(name)]
	e.mu.RUnlock()
	if strategy == nil {
		e.logger.Warn("combination selection named an unregistered strategy, using standard",
			"generic", g.name, "strategy", string(name))
		return standardCombine
	}
	return strategy
}

// standardCombine implements the qualifier-based standard combination.
//
// Roles partition the subset, preserving specificity order within each:
//   - around methods wrap everything; their continuation chains through
//     the remaining arounds and bottoms out in the core
//   - the core runs every before (most specific first, results discarded),
//     then the primary chain, then every after in REVERSE order, and
//     returns the most specific primary's value
//   - before/after methods get no continuation semantics: an error from
//     one aborts the call, their return values are dropped
func standardCombine(e *Engine, g *Generic, methods []*Method) Callable {
	if len(methods) == 0 {
		return func(args []ir.Value) (ir.Value, error) {
			return e.noApplicable(g, args)
		}
	}

	var befores, primaries, afters, arounds []*Method
	for _, m := range methods {
		role, err := m.role()
		if err != nil {
			// Unreachable: registration validates qualifiers.
			continue
		}
		switch role {
		case ir.QualifierBefore:
			befores = append(befores, m)
		case ir.QualifierAfter:
			afters = append(afters, m)
		case ir.QualifierAround:
			arounds = append(arounds, m)
		default:
			primaries = append(primaries, m)
		}
	}

	if len(primaries) == 0 {
		return func(args []ir.Value) (ir.Value, error) {
			return e.noPrimary(g, args)
		}
	}

	core := func(args []ir.Value) (ir.Value, error) {
		for _, m := range befores {
			if _, err := m.Body.invoke(&noNext{e: e, g: g, method: m, origArgs: args}, args); err != nil {
				return nil, err
			}
		}
		result, err := e.callChain(g, primaries, nil, args)
		if err != nil {
			return nil, err
		}
		for i := len(afters) - 1; i >= 0; i-- {
			m := afters[i]
			if _, err := m.Body.invoke(&noNext{e: e, g: g, method: m, origArgs: args}, args); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	if len(arounds) == 0 {
		return core
	}
	return func(args []ir.Value) (ir.Value, error) {
		return e.callChain(g, arounds, core, args)
	}
}

// noApplicable raises the no-applicable-method failure, routed through the
// %no-applicable-method handler generic once the engine is self-hosted. A
// handler method may recover by returning a value.
func (e *Engine) noApplicable(g *Generic, args []ir.Value) (ir.Value, error) {
	if isInternal(g.name) || !e.selfHosted.Load() {
		return nil, rawNoApplicable(g.name, args)
	}
	return e.invokeGeneric(e.noApplicableGF, []ir.Value{ir.String(g.name), ir.Array(args)})
}

// noPrimary raises the no-primary-method failure, routed through
// %no-primary-method once self-hosted.
func (e *Engine) noPrimary(g *Generic, args []ir.Value) (ir.Value, error) {
	if isInternal(g.name) || !e.selfHosted.Load() {
		return nil, rawNoPrimary(g.name, args)
	}
	return e.invokeGeneric(e.noPrimaryGF, []ir.Value{ir.String(g.name), ir.Array(args)})
}

// noNextMethod raises the no-next-method failure: the terminal
// continuation was invoked. Routed through %no-next-method once
// self-hosted.
func (e *Engine) noNextMethod(g *Generic, m *Method, args []ir.Value) (ir.Value, error) {
	if isInternal(g.name) || !e.selfHosted.Load() {
		return nil, rawNoNext(g.name, m.ID, args)
	}
	return e.invokeGeneric(e.noNextGF, []ir.Value{ir.String(g.name), ir.String(m.ID), ir.Array(args)})
}

func rawNoApplicable(generic string, args []ir.Value) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeNoApplicableMethod,
		Generic: generic,
		Args:    ir.Array(args),
		Message: "no applicable method",
	}
}

func rawNoPrimary(generic string, args []ir.Value) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeNoPrimaryMethod,
		Generic: generic,
		Args:    ir.Array(args),
		Message: "applicable methods but no primary method",
	}
}

func rawNoNext(generic, method string, args []ir.Value) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeNoNextMethod,
		Generic: generic,
		Method:  method,
		Args:    ir.Array(args),
		Message: "no next method",
	}
}
