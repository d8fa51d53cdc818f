// Package stats holds small statistics helpers for report summaries.
package stats

import (
	"cmp"
	"slices"
)

// Percentile returns the p-th percentile (nearest rank, rounding down) of
// sorted, which must be in ascending order. Empty input yields the zero
// value; p is clamped to [0, 100].
func Percentile[T cmp.Ordered](sorted []T, p int) T {
	var zero T
	if len(sorted) == 0 {
		return zero
	}
	p = min(max(p, 0), 100)
	idx := min((p*len(sorted))/100, len(sorted)-1)
	return sorted[idx]
}

// Percentiles sorts a copy of values and returns the requested percentiles
// in argument order.
func Percentiles[T cmp.Ordered](values []T, ps ...int) []T {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	out := make([]T, len(ps))
	for i, p := range ps {
		out[i] = Percentile(sorted, p)
	}
	return out
}
