package store

import (
	"context"
	"fmt"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

// Divergence is one mismatch between a recorded call and its replay.
type Divergence struct {
	CallID   string `json:"call_id"`
	Generic  string `json:"generic"`
	Field    string `json:"field"` // "outcome", "result", or "failure_code"
	Recorded string `json:"recorded"`
	Actual   string `json:"actual"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s %s: %s recorded %q, got %q", d.Generic, d.CallID, d.Field, d.Recorded, d.Actual)
}

// Replay re-invokes every recorded call matching the filter against the
// engine and reports divergences in outcome, result, or failure code.
// Caches are rebuilt from scratch because nothing cached is persisted;
// a clean replay therefore validates the engine's current definitions
// against the trace, not just its memory of the original run.
//
// The engine should not have a recorder attached to this store, or the
// replay itself appends fresh records.
//
// A non-empty divergence list is not an error: the trace was read and
// replayed fine, the definitions just disagree with it.
func (s *Store) Replay(ctx context.Context, e *dispatch.Engine, filter CallFilter) ([]Divergence, error) {
	records, err := s.ReadCalls(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	divergences := []Divergence{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		divergences = append(divergences, replayOne(e, rec)...)
	}
	return divergences, nil
}

func replayOne(e *dispatch.Engine, rec dispatch.CallRecord) []Divergence {
	result, err := e.Invoke(rec.Generic, rec.Args...)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	var divs []Divergence
	mismatch := func(field, recorded, actual string) {
		divs = append(divs, Divergence{
			CallID:   rec.CallID,
			Generic:  rec.Generic,
			Field:    field,
			Recorded: recorded,
			Actual:   actual,
		})
	}

	if outcome != rec.Outcome {
		mismatch("outcome", rec.Outcome, outcome)
		return divs
	}

	if outcome == "error" {
		if code := dispatch.FailureCode(err); code != rec.FailureCode {
			mismatch("failure_code", rec.FailureCode, code)
		}
		return divs
	}

	recorded, rerr := ir.MarshalCanonical(rec.Result)
	actual, aerr := ir.MarshalCanonical(result)
	switch {
	case rerr != nil || aerr != nil:
		mismatch("result", fmt.Sprintf("%v", rec.Result), fmt.Sprintf("%v", result))
	case string(recorded) != string(actual):
		mismatch("result", string(recorded), string(actual))
	}
	return divs
}
