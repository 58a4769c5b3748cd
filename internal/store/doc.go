// Package store provides SQLite-backed durable storage for dispatch traces.
//
// The store implements an append-only call log:
//   - Calls: one record per top-level Invoke (args, outcome, cache activity)
//   - Applied methods: the applicable-method list per call, most specific first
//
// Caches are never persisted. A trace records what happened; replaying it
// re-dispatches from scratch against the live definitions and reports
// divergences, so a trace can validate a redefined method table.
//
// All ordering uses seq INTEGER (logical clock), never timestamps, and all
// queries order by: ORDER BY seq ASC, id COLLATE BINARY ASC. This makes
// query results identical across replays.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Call IDs are content-addressed via internal/ir (RFC 8785 canonical JSON,
// SHA-256 with domain separation).
package store
