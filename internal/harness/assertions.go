package harness

import (
	"fmt"
	"math"
)

// EvaluateAssertions checks every assertion against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluateAssertion(result, &a); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

// evaluateAssertion returns an empty string when the assertion holds.
func evaluateAssertion(result *Result, a *Assertion) string {
	switch a.Type {
	case AssertFinalBPM:
		if diff := math.Abs(result.FinalBPM - a.Value); diff > a.Tolerance {
			return fmt.Sprintf("final bpm %v, want %v within %v", result.FinalBPM, a.Value, a.Tolerance)
		}

	case AssertTraceCount:
		if len(result.Trace) != a.Count {
			return fmt.Sprintf("%d strikes matched, want %d", len(result.Trace), a.Count)
		}

	case AssertBPMInRange:
		for _, ev := range result.Trace {
			if ev.BPM < a.Min || ev.BPM > a.Max {
				return fmt.Sprintf("seq %d published bpm %v outside [%v, %v]", ev.Seq, ev.BPM, a.Min, a.Max)
			}
		}

	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}
