// Package harness provides a scenario-driven conformance harness for the
// dispatch engine.
//
// A scenario is a YAML file that names CUE definition files, a flow of
// invocations with expected outcomes, and assertions over the recorded
// trace. Each scenario runs against a fresh engine with a fresh in-memory
// trace store and a deterministic token sequence, so the same scenario
// produces byte-identical traces on every run. Golden trace files
// (testdata/golden/*.golden) pin those traces down; regenerate with:
//
//	go test ./internal/harness -update
//
// Method bodies in definition files are behavior names. The harness
// resolves them against a built-in library (echo, first, sum, concat)
// plus prefixed forms:
//
//	const:<json>    return the fixed value
//	journal:<label> append label to the run journal, return the label
//	around:<label>  journal "<label>-in", call the next method,
//	                journal "<label>-out", return the inner result
//	fail:<message>  return an error
//
// Callers can extend the library with WithBehavior. The journal gives
// scenarios an observable execution order for qualified methods without
// reaching into engine internals.
package harness
