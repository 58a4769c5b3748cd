package harness

import (
	"fmt"
	"slices"
)

// evaluateAssertion checks one assertion against the result, appending
// failures to the result's error list.
func evaluateAssertion(result *Result, index int, a Assertion) {
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("assertions[%d] %s: ", index, a.Type) + fmt.Sprintf(format, args...))
	}

	switch a.Type {
	case AssertTraceCount:
		count := 0
		for _, ev := range result.Trace {
			if ev.Generic == a.Generic {
				count++
			}
		}
		if count != a.Count {
			fail("%q appears %d times, want %d", a.Generic, count, a.Count)
		}

	case AssertTraceOrder:
		// Relative order: each expected generic must appear after the
		// previous match, other events may interleave.
		pos := 0
		for _, want := range a.Generics {
			found := false
			for ; pos < len(result.Trace); pos++ {
				if result.Trace[pos].Generic == want {
					found = true
					pos++
					break
				}
			}
			if !found {
				fail("%q not found in order %v", want, a.Generics)
				return
			}
		}

	case AssertJournal:
		if !slices.Equal(result.Journal, a.Entries) {
			fail("journal = %v, want %v", result.Journal, a.Entries)
		}

	case AssertCacheReuse:
		if result.Stats.CombineReuses < int64(a.Count) {
			fail("combine reuses = %d, want at least %d", result.Stats.CombineReuses, a.Count)
		}

	default:
		// validateScenario rejects unknown types before execution.
		fail("unknown assertion type")
	}
}
