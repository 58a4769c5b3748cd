// Package tracequery provides a small predicate language over the
// recorded call log, compiled to parameterized SQL.
//
// The AST is sealed: only types in this package implement Predicate, so
// the compiler's type switch is exhaustive. Field names are checked
// against a whitelist of calls-table columns before they reach SQL;
// values always travel as bind parameters, never interpolated.
package tracequery

import "github.com/roach88/multimethod/internal/ir"

// Predicate is a filter over recorded calls.
//
// Predicate types:
//   - Equals: column = literal value
//   - And: every sub-predicate holds
//   - SeqRange: sequence number within [Min, Max]
//   - AppliedMethod: a given method ran during the call
type Predicate interface {
	predicateNode() // seals the interface to this package
}

// Equals matches calls where a column equals a literal value.
//
// Field must name a scalar column of the calls table (see Fields).
// Value must be a String, Int, or Bool; comparing against Null is
// rejected because recorded columns are never null except result,
// which is not queryable here.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// And matches calls satisfying every sub-predicate. An empty And
// matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// SeqRange matches calls whose sequence number lies in [Min, Max].
// A zero bound leaves that side open.
type SeqRange struct {
	Min int64
	Max int64
}

func (SeqRange) predicateNode() {}

// AppliedMethod matches calls during which the given method ran, in
// any position of the applied chain.
type AppliedMethod struct {
	MethodID string
}

func (AppliedMethod) predicateNode() {}
