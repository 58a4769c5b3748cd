package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/multimethod/internal/ir"
)

// Generic is a generic function: a named dispatch target with a method
// table, a dispatch plan, and a compiled entry point.
//
// The method table is ordered by registration; replacement preserves list
// position. The dispatch plan orders the dispatch keys that at least one
// method constrains; its key order decides which argument is inspected
// first at call time.
//
// Thread-safety: mutation (register/remove/precedence/clear) is serialized
// under mu and publishes the rebuilt entry point atomically; the dispatch
// hot path only loads the published entry.
type Generic struct {
	name   string
	engine *Engine

	mu         sync.Mutex
	methods    []*Method
	precedence []string // key strings, checked-first order, newest wins
	plan       []planEntry
	nextSeq    int

	entry      atomic.Value // Callable
	generation atomic.Int64
}

// MethodInfo is the introspection view of one registered method:
// everything a documentation layer needs, nothing executable.
type MethodInfo struct {
	ID          string           `json:"id"`
	Bindings    []ir.BindingSpec `json:"bindings"`
	Qualifiers  []string         `json:"qualifiers,omitempty"`
	Convention  string           `json:"convention"`
	DisplayArgs []string         `json:"display_args"`
}

// Name returns the generic function's name.
func (g *Generic) Name() string {
	return g.name
}

// RegisterMethod adds a method, or replaces in place the method with the
// same (specializers, qualifiers) identity. Malformed registrations are
// rejected here, never deferred to call time.
//
// As a side effect the dispatch plan is recomputed and the compiled entry
// point rebuilt; other generic functions are untouched.
func (g *Generic) RegisterMethod(bindings []ir.BindingSpec, qualifiers []string, body Body) error {
	if err := g.validateRegistration(bindings, qualifiers); err != nil {
		return err
	}

	id, err := ir.MethodID(bindings, qualifiers)
	if err != nil {
		return newMalformed(g.name, "unhashable specializer: %v", err)
	}

	// Intern before publishing: extraction must be able to discriminate on
	// the new specializers from the first call onward.
	for _, b := range bindings {
		if ierr := g.engine.internSpecializer(b.Spec); ierr != nil {
			return newMalformed(g.name, "unhashable specializer: %v", ierr)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	m := &Method{
		ID:         id,
		Bindings:   bindings,
		Qualifiers: qualifiers,
		Body:       body,
	}

	replaced := false
	for i, existing := range g.methods {
		if existing.ID == id {
			m.seq = existing.seq // replacement keeps list position and age
			g.methods[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		m.seq = g.nextSeq
		g.nextSeq++
		g.methods = append(g.methods, m)
	}

	g.warnArityMismatchLocked(m)
	g.rebuildLocked()
	return nil
}

// RemoveMethod deletes the method with the given (specializers,
// qualifiers) identity and rebuilds the entry point. A no-op if absent.
func (g *Generic) RemoveMethod(bindings []ir.BindingSpec, qualifiers []string) error {
	id, err := ir.MethodID(bindings, qualifiers)
	if err != nil {
		return newMalformed(g.name, "unhashable specializer: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for i, existing := range g.methods {
		if existing.ID == id {
			g.methods = append(g.methods[:i], g.methods[i+1:]...)
			g.rebuildLocked()
			return nil
		}
	}
	return nil // fails silently: removal of an absent method is a no-op
}

// LookupMethod finds the registered method with the given identity.
func (g *Generic) LookupMethod(bindings []ir.BindingSpec, qualifiers []string) (*Method, bool) {
	id, err := ir.MethodID(bindings, qualifiers)
	if err != nil {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.methods {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// DeclarePrecedence declares that the named dispatch keys are consulted
// first, in the given order. Later declarations outrank earlier ones.
// Naming a key no method dispatches on is a malformed registration.
func (g *Generic) DeclarePrecedence(keys ...DispatchKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	dispatchable := make(map[string]bool)
	for _, m := range g.methods {
		for _, b := range m.Bindings {
			dispatchable[b.KeyString()] = true
		}
	}
	for _, k := range keys {
		if !dispatchable[k.String()] {
			return newMalformed(g.name, "precedence names non-dispatchable key %q", k.String())
		}
	}

	// Newest declaration first: prepend, de-duplicating in favor of the
	// new position.
	ordered := make([]string, 0, len(keys)+len(g.precedence))
	seen := make(map[string]bool)
	for _, k := range keys {
		ks := k.String()
		if !seen[ks] {
			ordered = append(ordered, ks)
			seen[ks] = true
		}
	}
	for _, ks := range g.precedence {
		if !seen[ks] {
			ordered = append(ordered, ks)
			seen[ks] = true
		}
	}
	g.precedence = ordered

	g.rebuildLocked()
	return nil
}

// Clear discards the method table, dispatch plan, and precedence
// declarations, leaving a defined-but-methodless generic behind.
func (g *Generic) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.methods = nil
	g.precedence = nil
	g.rebuildLocked()
}

// Methods returns the introspection view of the method table in
// registration order.
func (g *Generic) Methods() []MethodInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	infos := make([]MethodInfo, len(g.methods))
	for i, m := range g.methods {
		infos[i] = MethodInfo{
			ID:          m.ID,
			Bindings:    m.Bindings,
			Qualifiers:  m.Qualifiers,
			Convention:  m.Body.Convention(),
			DisplayArgs: m.DisplayArgs(),
		}
	}
	return infos
}

// ApplicableMethods resolves which registered methods would apply to the
// given arguments, most specific first, without touching any cache. This
// is the introspection entry documentation tooling builds on.
func (g *Generic) ApplicableMethods(args []ir.Value) []*Method {
	g.mu.Lock()
	plan := g.plan
	methods := make([]*Method, len(g.methods))
	copy(methods, g.methods)
	g.mu.Unlock()

	e := g.engine
	for _, entry := range plan {
		tag := entry.extractTag(e, args)
		methods = filterByTag(e, entry, methods, tag)
		if len(methods) == 0 {
			break
		}
	}
	return methods
}

// rebuildLocked recomputes the dispatch plan and atomically publishes a
// fresh entry point. The old entry's private caches are orphaned with it;
// the new entry's caches start empty and refill from the live method
// table. Must be called with g.mu held.
func (g *Generic) rebuildLocked() {
	// Invalidate this generic's combined-callable memo entries before the
	// rebuild can repopulate them against the new method table.
	gen := g.generation.Add(1)
	g.engine.combined.sweep(g.name, gen)

	g.plan = g.buildPlanLocked()

	methods := make([]*Method, len(g.methods))
	copy(methods, g.methods)

	var entry Callable
	if len(g.plan) == 0 {
		// No dispatch position discriminates: every method applies
		// unconditionally, in table order.
		entry = g.engine.resolveCombined(g, methods)
	} else {
		d := g.engine.getDispatcher(g.plan[0].key, g.plan[0].gens)
		entry = d.Instantiate(g, g.plan[1:], methods)
	}
	g.entry.Store(entry)
}

// validateRegistration rejects malformed registrations: invalid
// specializers, duplicate dispatch keys, unsupported qualifier
// combinations.
func (g *Generic) validateRegistration(bindings []ir.BindingSpec, qualifiers []string) error {
	seen := make(map[string]bool)
	for _, b := range bindings {
		if b.Arg < 0 && b.Context == "" {
			return newMalformed(g.name, "context binding requires a context name")
		}
		if b.Arg >= 0 && b.Context != "" {
			return newMalformed(g.name, "binding cannot name both an argument and a context")
		}
		ks := b.KeyString()
		if seen[ks] {
			return newMalformed(g.name, "duplicate dispatch key %q", ks)
		}
		seen[ks] = true
		if errs := b.Spec.Validate(); len(errs) > 0 {
			return newMalformed(g.name, "invalid specializer at %q: %s", ks, errs[0].Error())
		}
	}

	probe := &Method{Qualifiers: qualifiers}
	if _, err := probe.role(); err != nil {
		return newMalformed(g.name, "%v", err)
	}
	return nil
}

// warnArityMismatchLocked logs when methods of one generic disagree on
// which dispatch keys they constrain. The behavior stays permissive - the
// plan simply unions the keys - but the mismatch is usually a declaration
// slip worth surfacing.
func (g *Generic) warnArityMismatchLocked(added *Method) {
	addedKeys := len(added.Bindings)
	for _, m := range g.methods {
		if m.ID == added.ID {
			continue
		}
		if len(m.Bindings) != addedKeys {
			g.engine.logger.Warn("dispatch keys differ across methods",
				"generic", g.name,
				"method", added.ID,
				"keys", addedKeys,
				"other_method", m.ID,
				"other_keys", len(m.Bindings))
			return
		}
	}
}
