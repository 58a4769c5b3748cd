// Package dispatch implements the multimethod resolution engine.
//
// The engine is the heart of multimethod - it owns generic functions with
// their method tables, selects the applicable methods for each call,
// combines them into one executable callable, and caches the result so
// repeated calls with structurally similar arguments skip recomputation.
//
// ARCHITECTURE:
//
// Generalizers:
// A generalizer pairs a priority with a tag-extraction rule (how to compute
// a cheap discriminant from an argument) and a specializer-listing rule
// (which declared specializers a discriminant satisfies, most specific
// first). The registry is bootstrapped with a catch-all generalizer;
// exact-value, shaped-value, nominal-type, derived-symbol, and
// tagged-wrapper generalizers are ordinary registry entries layered on top.
//
// Dispatch Flow:
//  1. A call enters the generic function's compiled entry point.
//  2. Each dispatch position extracts one discriminant: every generalizer
//     in the position's plan entry is consulted, highest priority first,
//     and the first non-trivial tag wins.
//  3. The discriminant indexes a per-dispatcher cache. On a hit the cached
//     callable runs directly; on a miss the candidate methods are filtered
//     by the specializers the discriminant satisfies, ordered most specific
//     first, and the next dispatch position (or the combination engine)
//     resolves the rest.
//  4. The combined callable is memoized by (generic, exact method subset)
//     so distinct discriminants that select the same subset share one
//     instance.
//
// Self-Hosting:
// Generalizer lookup and combination-strategy selection are themselves
// generic functions running on this engine. Their bootstrap path uses
// hand-written defaults; a re-entrancy detector breaks the circularity by
// falling back to the standard combination when a method subset is found
// mid-construction of itself.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every recorded call is stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Single Logical Mutator:
// Method registration and removal are rare administrative operations,
// serialized per generic function, and publish the rebuilt entry point
// atomically. The hot dispatch path only reads atomically-published state
// and insert-if-absent caches, so in-flight calls never observe a
// half-updated dispatch plan.
//
// Targeted Invalidation:
// Mutating one generic function rebuilds only that function's entry point
// and sweeps only its combined-callable memo entries. There is no global
// epoch counter: dispatchers are pure functions of (dispatch key,
// generalizer set) and stay shared across generic functions.
package dispatch
