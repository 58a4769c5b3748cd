package dispatch

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/multimethod/internal/ir"
)

// Engine owns all shared dispatch state: the generalizer registry, the
// generic-function table, the global dispatcher memo, and the
// combined-callable memo.
//
// Thread-safety model:
//   - Invoke(): safe from any goroutine (reads atomically-published entry
//     points and insert-if-absent caches)
//   - RegisterMethod()/RemoveMethod(): administrative; serialized per
//     generic function, safe from any goroutine
//   - RegisterGeneralizer()/DeriveSymbol(): setup-time; safe via the
//     engine lock, but generalizers are effectively permanent once used
//
// INVARIANTS:
//   - Each generic's method list order NEVER changes except by explicit
//     registration or removal (replacement preserves position)
//   - Mutating one generic never invalidates another generic's caches
type Engine struct {
	mu sync.RWMutex

	logger   *slog.Logger
	clock    *Clock
	tokens   TokenGenerator
	recorder Recorder

	// Generalizer registry, priority-sorted.
	generalizers []*Generalizer
	genByName    map[string]*Generalizer
	typeTree     *TypeTree
	derivedTree  *TypeTree

	// Named callables: generic functions and plain functions share one
	// namespace, which is why DefineGeneric can collide with a non-generic.
	generics map[string]*Generic
	funcs    map[string]Callable

	// Context expressions, evaluated at call time for context dispatch.
	contexts map[string]func() ir.Value

	// Interning tables: extraction discriminates only on values some
	// registered specializer actually names, keeping caches bounded.
	eqlTable     map[string]ir.Value
	headTable    map[string]bool
	wrapperTable map[string]bool
	derivedUsed  map[string]bool

	// Global dispatcher memo: (dispatch key, generalizer set) -> factory.
	dispatchers sync.Map // string -> *Dispatcher

	// Combined-callable memo and its re-entrancy detector.
	combined  combinedMemo
	combining combiningSet

	// Combination strategies by name; selection is dispatched through the
	// %combination generic.
	strategies map[string]Combination

	// Self-hosted internals.
	generalizersOf *Generic
	combination    *Generic
	noApplicableGF *Generic
	noPrimaryGF    *Generic
	noNextGF       *Generic
	selfHosted     atomic.Bool

	stats engineStats
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the logical clock. Used by replay to resume from a
// recorded position.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokenGenerator sets the call-token generator.
// Default: UUIDv7Generator. Tests use FixedGenerator for determinism.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithRecorder attaches a trace recorder. Every top-level Invoke is then
// recorded with its outcome, applied methods, and cache activity.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New creates an Engine with the built-in generalizers, the two
// feature-module generalizers, and the self-hosted internals registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:       slog.Default(),
		clock:        NewClock(),
		tokens:       UUIDv7Generator{},
		genByName:    make(map[string]*Generalizer),
		typeTree:     NewTypeTree("any"),
		derivedTree:  NewTypeTree(derivedRoot),
		generics:     make(map[string]*Generic),
		funcs:        make(map[string]Callable),
		contexts:     make(map[string]func() ir.Value),
		eqlTable:     make(map[string]ir.Value),
		headTable:    make(map[string]bool),
		wrapperTable: make(map[string]bool),
		derivedUsed:  make(map[string]bool),
		strategies:   make(map[string]Combination),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.combined.entries = make(map[string]*combinedEntry)
	e.combining.active = make(map[combineFrame]bool)
	e.strategies[StandardCombination] = standardCombine

	e.registerBuiltins()
	e.registerDerived()
	e.registerWrapper()
	e.bootstrapInternals()
	e.selfHosted.Store(true)

	return e
}

// DefineGeneric creates (or returns) the generic function bound to name.
// Idempotent for generics; fails if the name already denotes an unrelated
// plain callable.
func (e *Engine) DefineGeneric(name string) (*Generic, error) {
	e.mu.Lock()
	if g, ok := e.generics[name]; ok {
		e.mu.Unlock()
		return g, nil
	}
	if _, taken := e.funcs[name]; taken {
		e.mu.Unlock()
		return nil, &DispatchError{
			Code:    ErrCodeNameTaken,
			Generic: name,
			Message: "name already denotes a non-generic callable",
		}
	}
	g := &Generic{name: name, engine: e}
	e.generics[name] = g
	e.mu.Unlock()

	// Publish an entry point immediately: invoking a methodless generic is
	// the no-applicable-method failure, not a nil deref.
	g.mu.Lock()
	g.rebuildLocked()
	g.mu.Unlock()

	return g, nil
}

// DefineFunction binds a plain (non-generic) callable to name. Fails if
// the name is already a generic function.
func (e *Engine) DefineFunction(name string, fn Callable) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.generics[name]; ok {
		return &DispatchError{
			Code:    ErrCodeNameTaken,
			Generic: name,
			Message: "name already denotes a generic function",
		}
	}
	e.funcs[name] = fn
	return nil
}

// Generic returns the generic function bound to name, or nil.
func (e *Engine) Generic(name string) *Generic {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generics[name]
}

// Generics returns the defined generic-function names, unordered.
func (e *Engine) Generics() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.generics))
	for name := range e.generics {
		names = append(names, name)
	}
	return names
}

// RegisterContext binds a named context expression. Methods may specialize
// on it; the provider is evaluated at call time.
func (e *Engine) RegisterContext(name string, provider func() ir.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contexts[name] = provider
}

// contextValue evaluates a context expression, Null if unbound.
func (e *Engine) contextValue(name string) ir.Value {
	e.mu.RLock()
	provider := e.contexts[name]
	e.mu.RUnlock()
	if provider == nil {
		return ir.Null{}
	}
	return provider()
}

// Invoke calls the named generic function (or plain callable) with args.
// When a recorder is attached, the call is stamped with a token and a
// logical seq and recorded with its outcome.
func (e *Engine) Invoke(name string, args ...ir.Value) (ir.Value, error) {
	e.mu.RLock()
	g := e.generics[name]
	fn := e.funcs[name]
	e.mu.RUnlock()

	if g == nil && fn == nil {
		return nil, &DispatchError{
			Code:    ErrCodeUndefinedGeneric,
			Generic: name,
			Message: "undefined generic function",
		}
	}
	if g == nil {
		return fn(args)
	}
	if e.recorder == nil {
		return e.invokeGeneric(g, args)
	}
	return e.invokeRecorded(g, args)
}

// invokeGeneric runs the generic's atomically-published entry point.
func (e *Engine) invokeGeneric(g *Generic, args []ir.Value) (ir.Value, error) {
	entry := g.entry.Load()
	if entry == nil {
		// DefineGeneric publishes an entry before returning; a nil here
		// means the generic is mid-construction on another goroutine.
		return nil, &DispatchError{
			Code:    ErrCodeNoApplicableMethod,
			Generic: g.name,
			Args:    args,
			Message: "no applicable method",
		}
	}
	return entry.(Callable)(args)
}

// isInternal reports whether the generic is one of the engine's
// self-hosted internals. Their failures stay raw to avoid re-entering the
// handler generics from inside themselves.
func isInternal(name string) bool {
	return len(name) > 0 && name[0] == '%'
}

// internSpecializer records a declared specializer in the interning
// tables so extraction can discriminate on it.
func (e *Engine) internSpecializer(spec ir.SpecializerSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch spec.Kind {
	case ir.SpecEql:
		vk, err := ir.ValueKey(spec.Value)
		if err != nil {
			return err
		}
		e.eqlTable[vk] = spec.Value
	case ir.SpecHead:
		e.headTable[spec.Name] = true
	case ir.SpecWrapper:
		e.wrapperTable[spec.Name] = true
	case ir.SpecDerived:
		e.derivedUsed[spec.Name] = true
	}
	return nil
}

// eqlValue returns the interned value for a canonical key.
func (e *Engine) eqlValue(vk string) (ir.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.eqlTable[vk]
	return v, ok
}

// headUsed reports whether any method head-specializes on the literal.
func (e *Engine) headUsed(lit string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.headTable[lit]
}

// wrapperUsed reports whether any method wrapper-specializes on the tag.
func (e *Engine) wrapperUsed(tag string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.wrapperTable[tag]
}

// Logger returns the engine's structured logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// engineStats holds the cache-activity counters.
type engineStats struct {
	dispatcherHits   atomic.Int64
	dispatcherMisses atomic.Int64
	combineBuilds    atomic.Int64
	combineReuses    atomic.Int64
	cycleFallbacks   atomic.Int64
}

// Stats is a point-in-time snapshot of cache activity, used by tests and
// the trace recorder to observe memoization behavior.
type Stats struct {
	DispatcherHits   int64 `json:"dispatcher_hits"`
	DispatcherMisses int64 `json:"dispatcher_misses"`
	CombineBuilds    int64 `json:"combine_builds"`
	CombineReuses    int64 `json:"combine_reuses"`
	CycleFallbacks   int64 `json:"cycle_fallbacks"`
}

// Stats returns a snapshot of the engine's cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		DispatcherHits:   e.stats.dispatcherHits.Load(),
		DispatcherMisses: e.stats.dispatcherMisses.Load(),
		CombineBuilds:    e.stats.combineBuilds.Load(),
		CombineReuses:    e.stats.combineReuses.Load(),
		CycleFallbacks:   e.stats.cycleFallbacks.Load(),
	}
}
