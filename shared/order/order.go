// Package order implements fractional ranking for cards within a column.
// Ranks are plain float64s: appending steps by a large constant, inserting
// between two neighbors takes their mean. Existing siblings are never
// renumbered, so insertion cost stays O(1) at the price of precision drift
// after very long insertion chains.
package order

// Step is the gap left between appended cards. Large enough that thousands
// of mean-insertions fit between two appends before float64 precision runs
// out.
const Step = 10000

// Initial is the rank of the first card in an empty column.
func Initial() float64 {
	return Step
}

// After returns a rank sorting after prev (drop at the end of a column).
func After(prev float64) float64 {
	return prev + Step
}

// Before returns a rank sorting before next (drop at the top of a column).
func Before(next float64) float64 {
	return next - Step
}

// Between returns a rank strictly between lo and hi when possible. When the
// mean collides with a bound (neighbors closer than float64 resolution) the
// caller gets the mean anyway; the sort stays stable because ties keep
// insertion order.
func Between(lo, hi float64) float64 {
	return lo + (hi-lo)/2
}

// ForPosition computes the rank for inserting at index i of a column whose
// current ranks are given in ascending display order. Handles the empty
// column, head, tail and in-between cases.
func ForPosition(ranks []float64, i int) float64 {
	if len(ranks) == 0 {
		return Initial()
	}
	if i <= 0 {
		return Before(ranks[0])
	}
	if i >= len(ranks) {
		return After(ranks[len(ranks)-1])
	}
	return Between(ranks[i-1], ranks[i])
}
