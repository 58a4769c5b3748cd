package testutil

import (
	"fmt"
	"sync"
)

// PrefixTokenGenerator produces an unbounded deterministic token sequence:
// "<prefix>-0001", "<prefix>-0002", and so on.
//
// Unlike dispatch.FixedGenerator, which panics when its fixed list runs
// out, this generator never exhausts. Scenarios with an unknown number of
// invocations use it so the same scenario produces byte-identical traces
// on every run.
//
// Implements dispatch.TokenGenerator.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type PrefixTokenGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewPrefixTokenGenerator creates a generator with the given prefix.
//
// The prefix is typically set in the scenario YAML:
//
//	token: "test-call"
//
// If prefix is empty, "test-call" is used.
func NewPrefixTokenGenerator(prefix string) *PrefixTokenGenerator {
	if prefix == "" {
		prefix = "test-call"
	}
	return &PrefixTokenGenerator{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *PrefixTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence. After Reset(), the next Generate() returns
// "<prefix>-0001" again.
func (g *PrefixTokenGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
