package dispatch

import (
	"github.com/roach88/multimethod/internal/ir"
)

// CallRecord is the audit trail entry for one top-level dispatch.
//
// Records describe what happened (which generic, which arguments, which
// methods applied, how the caches behaved); they never contain cache
// contents, so replaying a trace always re-dispatches from scratch.
type CallRecord struct {
	CallID  string   `json:"call_id"` // content-addressed (ir.CallID)
	Token   string   `json:"token"`
	Generic string   `json:"generic"`
	Args    ir.Array `json:"args"`
	Seq     int64    `json:"seq"`

	// Outcome is "ok" or "error".
	Outcome     string   `json:"outcome"`
	Result      ir.Value `json:"result,omitempty"`
	FailureCode string   `json:"failure_code,omitempty"`

	// Applied lists the method IDs that were applicable, most specific
	// first, as resolved against the live method table.
	Applied []string `json:"applied,omitempty"`

	// Cache activity attributable to this call. Meaningful under the
	// single-logical-mutator assumption; concurrent callers may see each
	// other's activity folded in.
	DispatcherMisses int64 `json:"dispatcher_misses"`
	CombineBuilds    int64 `json:"combine_builds"`
}

// Recorder consumes call records. Implemented by the trace store.
type Recorder interface {
	RecordCall(rec CallRecord) error
}

// invokeRecorded wraps invokeGeneric with trace recording: token and seq
// stamping, outcome capture, applied-method resolution, and cache-activity
// deltas. Recording failures are logged, never surfaced to the caller -
// tracing must not change dispatch semantics.
func (e *Engine) invokeRecorded(g *Generic, args []ir.Value) (ir.Value, error) {
	token := e.tokens.Generate()
	seq := e.clock.Next()
	before := e.Stats()

	result, err := e.invokeGeneric(g, args)

	after := e.Stats()
	rec := CallRecord{
		Token:            token,
		Generic:          g.name,
		Args:             ir.Array(args),
		Seq:              seq,
		DispatcherMisses: after.DispatcherMisses - before.DispatcherMisses,
		CombineBuilds:    after.CombineBuilds - before.CombineBuilds,
	}
	if err != nil {
		rec.Outcome = "error"
		rec.FailureCode = FailureCode(err)
	} else {
		rec.Outcome = "ok"
		rec.Result = result
	}

	applied := g.ApplicableMethods(args)
	ids := make([]string, len(applied))
	for i, m := range applied {
		ids[i] = m.ID
	}
	rec.Applied = ids

	if id, cerr := ir.CallID(token, g.name, rec.Args, seq); cerr == nil {
		rec.CallID = id
	} else {
		e.logger.Warn("trace: call id", "generic", g.name, "error", cerr)
	}

	if rerr := e.recorder.RecordCall(rec); rerr != nil {
		e.logger.Warn("trace: record call", "generic", g.name, "error", rerr)
	}

	return result, err
}
