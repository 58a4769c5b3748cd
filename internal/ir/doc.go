// Package ir provides the canonical data model for the multimethod engine.
//
// This package contains value and descriptor types only. All other internal
// packages import ir; ir imports nothing internal. This keeps it the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers (floats break the
//     determinism of content-addressed identity)
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - Every identity hash goes through MarshalCanonical, nothing else
package ir
