package episode

import "math"

// #region compare
// Comparison is one row of a replayed-vs-expected table.
type Comparison struct {
	StepID   string
	Expected float64 // NaN when the step had no expectation
	Replayed float64
	Match    bool
}

// Compare lines results up against expected rewards. Steps past the shorter
// of the two slices are ignored; NaN expectations always match.
func Compare(results []StepResult, expected []float64, tolerance float64) []Comparison {
	n := len(results)
	if len(expected) < n {
		n = len(expected)
	}
	out := make([]Comparison, n)
	for i := 0; i < n; i++ {
		exp := expected[i]
		got := results[i].Reward
		out[i] = Comparison{
			StepID:   results[i].StepID,
			Expected: exp,
			Replayed: got,
			Match:    math.IsNaN(exp) || math.Abs(exp-got) <= tolerance,
		}
	}
	return out
}

// Mismatches counts rows that diverged.
func Mismatches(rows []Comparison) int {
	n := 0
	for _, r := range rows {
		if !r.Match {
			n++
		}
	}
	return n
}

// #endregion compare
