package dispatch

import "github.com/roach88/multimethod/internal/ir"

// Next is the per-call continuation handed to method bodies.
//
// A continuation either leads to the next more general method in the chain
// or is the terminal sentinel. The sentinel is a distinguishable type, not
// a nil: introspection code can ask Defined() without invoking it, and
// invoking it produces the no-next-method failure rather than a panic.
//
// Calling a continuation with zero arguments re-uses the original call's
// arguments; explicit arguments replace them for the rest of the chain.
type Next interface {
	// Call invokes the rest of the chain. With no arguments, the original
	// call's arguments are re-used.
	Call(args ...ir.Value) (ir.Value, error)

	// Defined reports whether a next method actually exists.
	Defined() bool
}

// liveNext is a continuation with at least one method remaining.
type liveNext struct {
	e        *Engine
	g        *Generic
	rest     []*Method // non-empty
	tail     Callable  // innermost continuation target, nil for primary chains
	origArgs []ir.Value
}

func (n *liveNext) Call(args ...ir.Value) (ir.Value, error) {
	if len(args) == 0 {
		args = n.origArgs
	}
	return n.e.callChain(n.g, n.rest, n.tail, args)
}

func (n *liveNext) Defined() bool { return true }

// tailNext is a continuation whose only remaining target is a wrapped
// callable (the core inside an around chain). It counts as defined: the
// around method genuinely has something to pass control to.
type tailNext struct {
	tail     Callable
	origArgs []ir.Value
}

func (n *tailNext) Call(args ...ir.Value) (ir.Value, error) {
	if len(args) == 0 {
		args = n.origArgs
	}
	return n.tail(args)
}

func (n *tailNext) Defined() bool { return true }

// noNext is the terminal sentinel: the most general method's continuation.
type noNext struct {
	e        *Engine
	g        *Generic
	method   *Method
	origArgs []ir.Value
}

func (n *noNext) Call(args ...ir.Value) (ir.Value, error) {
	if len(args) == 0 {
		args = n.origArgs
	}
	return n.e.noNextMethod(n.g, n.method, args)
}

func (n *noNext) Defined() bool { return false }

// callChain invokes ms[0] with a continuation covering ms[1:] and finally
// tail (if non-nil). This is the next-method chain: the ordered sequence of
// progressively more general methods, each reachable via an explicit
// continuation value.
func (e *Engine) callChain(g *Generic, ms []*Method, tail Callable, args []ir.Value) (ir.Value, error) {
	m := ms[0]
	var next Next
	switch {
	case len(ms) > 1:
		next = &liveNext{e: e, g: g, rest: ms[1:], tail: tail, origArgs: args}
	case tail != nil:
		next = &tailNext{tail: tail, origArgs: args}
	default:
		next = &noNext{e: e, g: g, method: m, origArgs: args}
	}
	return m.Body.invoke(next, args)
}
