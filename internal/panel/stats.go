package panel

import (
	"math"
	"sort"
)

// median returns the middle value of xs, averaging the two middle values for
// even lengths. NaN for an empty slice.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)

	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// safeMedian reports the median together with whether it is usable as a
// weight denominator (finite and positive).
func safeMedian(xs []float64) (float64, bool) {
	m := median(xs)
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return m, false
	}
	return m, true
}

func ptr(v float64) *float64 { return &v }
