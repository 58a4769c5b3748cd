package harness

import (
	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

// TraceEvent is one recorded top-level dispatch, flattened for assertions
// and golden comparison. Tokens and content-addressed call IDs are
// deliberately omitted so golden traces stay stable across token schemes.
type TraceEvent struct {
	Generic string   `json:"generic"`
	Args    ir.Array `json:"args"`
	Outcome string   `json:"outcome"`
	Result  ir.Value `json:"result,omitempty"`
	Failure string   `json:"failure,omitempty"`
	Seq     int64    `json:"seq"`
}

// StepResult is the outcome of one flow step's expect clause.
type StepResult struct {
	Step    int64  `json:"step"` // 1-based flow position
	Generic string `json:"generic"`
	Outcome string `json:"outcome"`
	Pass    bool   `json:"pass"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every top-level dispatch, in seq order.
	Trace []TraceEvent `json:"trace"`

	// Steps mirrors the scenario flow, one entry per step.
	Steps []StepResult `json:"steps"`

	// Journal holds the labels appended by journal: and around: behaviors,
	// in execution order.
	Journal []string `json:"journal,omitempty"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stats is the engine's cache activity over the whole run, including
	// the engine's own internal generics.
	Stats dispatch.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Steps:   []StepResult{},
		Journal: []string{},
		Errors:  []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
