package dispatch

import (
	"fmt"
	"sync"
)

// TypeTree is a single-inheritance hierarchy of named types (or derived
// symbols). Each name has at most one parent; chains terminate at the root.
//
// The nominal-type generalizer walks a TypeTree of value kinds; the
// derived-symbol generalizer walks a separate TypeTree of user-declared
// symbols. Lookup is a parent-chain walk, most specific name first.
//
// Thread-safety: safe for concurrent reads after setup; Register may be
// called concurrently via the internal lock.
type TypeTree struct {
	mu     sync.RWMutex
	root   string
	parent map[string]string // child -> parent; root maps to ""
}

// NewTypeTree creates a tree containing only the root name.
func NewTypeTree(root string) *TypeTree {
	return &TypeTree{
		root:   root,
		parent: map[string]string{root: ""},
	}
}

// Register adds name under parent. The parent must already be present.
// Re-registering an existing name under the same parent is a no-op;
// re-parenting is rejected to keep chains stable.
func (t *TypeTree) Register(name, parent string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.parent[parent]; !ok {
		return fmt.Errorf("unknown parent type %q", parent)
	}
	if existing, ok := t.parent[name]; ok {
		if existing == parent {
			return nil
		}
		return fmt.Errorf("type %q already registered under %q", name, existing)
	}
	t.parent[name] = parent
	return nil
}

// Known reports whether name is present in the tree.
func (t *TypeTree) Known(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.parent[name]
	return ok
}

// Chain returns the ancestry of name, most specific first, ending at the
// root. Returns nil for unknown names.
func (t *TypeTree) Chain(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.parent[name]; !ok {
		return nil
	}
	var chain []string
	for n := name; n != ""; n = t.parent[n] {
		chain = append(chain, n)
	}
	return chain
}

// Derives reports whether name is descendant-or-self of ancestor.
func (t *TypeTree) Derives(name, ancestor string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.parent[name]; !ok {
		return false
	}
	for n := name; n != ""; n = t.parent[n] {
		if n == ancestor {
			return true
		}
	}
	return false
}

// Root returns the root name of the tree.
func (t *TypeTree) Root() string {
	return t.root
}
